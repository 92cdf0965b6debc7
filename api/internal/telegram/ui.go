package telegram

const (
	textCommands = "Commands: /health, /engine gemini|vertex"

	textStart = "Send a patent drawing PDF and I will list the component labels of every figure.\n" +
		"Caption \"3\" parses page 3 only, \"2-5\" parses pages 2 to 5.\n" + textCommands

	textSendPDF   = "Please send the drawings as a PDF document."
	textAccepted  = "📄 %s accepted, parsing with %s. This can take a few minutes."
	textBusy      = "⏳ Still working on your previous document."
	textNoFigures = "No figures with labels were found."

	textDownloadFailed = "❌ Could not download the document, please send it again."
	textFailed         = "❌ Parsing failed, please try again later."
)
