package dialogue

// Fixed per-language prompt texts. The consent question wording is part of
// the compliance surface and is deliberately not LLM-generated.

var consentQuestions = map[string]string{
	LanguageEnglish: "Do you consent to participate in this brief survey?",
	LanguageItalian: "Acconsente a partecipare a questo breve sondaggio?",
}

var proceedMessages = map[string]string{
	LanguageEnglish: "Thank you for agreeing to participate. Let's begin with the first question.",
	LanguageItalian: "Grazie per aver accettato di partecipare. Iniziamo con la prima domanda.",
}

var clarifyMessages = map[string]string{
	LanguageEnglish: "I'm sorry, I didn't quite catch that. Do you consent to participate? Please say yes or no.",
	LanguageItalian: "Mi scusi, non ho capito bene. Acconsente a partecipare? Per favore risponda sì o no.",
}

var acknowledgmentFallbacks = map[string]string{
	LanguageEnglish: "Thank you.",
	LanguageItalian: "Grazie.",
}

var completionFallbacks = map[string]string{
	LanguageEnglish: "Thank you so much for completing our survey. Your feedback is very valuable to us. Goodbye!",
	LanguageItalian: "Grazie mille per aver completato il nostro sondaggio. La sua opinione è molto importante per noi. Arrivederci!",
}

var repeatPrefixes = map[string]string{
	LanguageEnglish: "Let me repeat the question: ",
	LanguageItalian: "Ripeto la domanda: ",
}

func scriptFor(scripts map[string]string, language string) string {
	if text, ok := scripts[language]; ok {
		return text
	}
	return scripts[LanguageEnglish]
}
