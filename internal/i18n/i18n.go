// Package i18n provides static translation tables for the assistant's own
// strings. Lookups fall back to English and finally to the key itself, so a
// caller always gets something renderable.
package i18n

// DefaultLanguage is used when a language or key has no entry
const DefaultLanguage = "en"

var translations = map[string]map[string]string{
	"en": {
		"greeting":          "Hi! I am your farming assistant. What region are you in? This helps me give you weather-based advice!",
		"follow_up":         "Is there anything else I can help you with? You can ask about plant health, weather, or farming tips.",
		"listening":         "Listening...",
		"processing":        "Thinking...",
		"speaking":          "Speaking...",
		"voice_unsupported": "Voice input is not available right now.",
		"region_required":   "Please set your region first so I can look up the weather.",
		"message_required":  "Please type a message first.",
		"image_required":    "Please attach a photo of the plant.",
		"weather_heading":   "Weather for your region",
		"plant_heading":     "Plant identification result",
	},
	"hi": {
		"greeting":        "नमस्ते! मैं आपका कृषि सहायक हूं। आप किस क्षेत्र में हैं? इससे मैं आपको मौसम आधारित सलाह दे सकता हूं!",
		"follow_up":       "क्या मैं आपकी और कोई मदद कर सकता हूं? आप पौधों के स्वास्थ्य, मौसम या खेती के सुझावों के बारे में पूछ सकते हैं।",
		"listening":       "सुन रहा हूं...",
		"processing":      "सोच रहा हूं...",
		"speaking":        "बोल रहा हूं...",
		"region_required": "कृपया पहले अपना क्षेत्र चुनें ताकि मैं मौसम देख सकूं।",
	},
	"ta": {
		"greeting":   "வணக்கம்! நான் உங்கள் விவசாய உதவியாளர். நீங்கள் எந்த பகுதியில் இருக்கிறீர்கள்?",
		"follow_up":  "வேறு ஏதேனும் உதவி வேண்டுமா? தாவர ஆரோக்கியம், வானிலை அல்லது விவசாய குறிப்புகள் பற்றி கேட்கலாம்.",
		"listening":  "கேட்டுக்கொண்டிருக்கிறேன்...",
		"processing": "யோசிக்கிறேன்...",
	},
	"te": {
		"greeting":  "నమస్కారం! నేను మీ వ్యవసాయ సహాయకుడిని. మీరు ఏ ప్రాంతంలో ఉన్నారు?",
		"follow_up": "నేను మీకు ఇంకేమైనా సహాయం చేయగలనా? మొక్కల ఆరోగ్యం, వాతావరణం లేదా వ్యవసాయ చిట్కాల గురించి అడగవచ్చు.",
	},
	"bn": {
		"greeting":  "নমস্কার! আমি আপনার কৃষি সহায়ক। আপনি কোন অঞ্চলে আছেন?",
		"follow_up": "আমি কি আপনাকে আর কিছুতে সাহায্য করতে পারি? গাছের স্বাস্থ্য, আবহাওয়া বা চাষের পরামর্শ সম্পর্কে জিজ্ঞাসা করতে পারেন।",
	},
}

// Translate looks up key for lang, falling back to the default language and
// finally to the key itself. It never returns an empty string for a
// non-empty key.
func Translate(lang, key string) string {
	if table, ok := translations[lang]; ok {
		if v, ok := table[key]; ok {
			return v
		}
	}
	if v, ok := translations[DefaultLanguage][key]; ok {
		return v
	}
	return key
}

// Supported reports whether a language has its own translation table
func Supported(lang string) bool {
	_, ok := translations[lang]
	return ok
}

// Languages returns the language codes with translation tables
func Languages() []string {
	langs := make([]string, 0, len(translations))
	for code := range translations {
		langs = append(langs, code)
	}
	return langs
}
