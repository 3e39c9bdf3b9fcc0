package assistant

import (
	"fmt"
	"strings"
)

// cannedResponse is the last-resort responder: a fixed keyword table over
// the lowercased message, checked in a fixed order, with a generic
// region-referencing closing when nothing matches.
func cannedResponse(q Query) string {
	lower := strings.ToLower(q.Message)

	switch {
	case strings.Contains(lower, "water"):
		return fmt.Sprintf("For watering in %s, I recommend checking soil moisture first. Generally, water early morning or evening to reduce evaporation. Most plants need about 1 inch of water per week, but this varies by plant type and local conditions.", q.Prefs.Region)
	case strings.Contains(lower, "plant"), strings.Contains(lower, "grow"):
		return fmt.Sprintf("Growing plants successfully in %s depends on your local climate zone. I'd recommend starting with native or adapted varieties. Consider factors like soil type, sunlight exposure, and local growing seasons.", q.Prefs.Region)
	case strings.Contains(lower, "pest"), strings.Contains(lower, "bug"):
		return "For pest management, I recommend integrated pest management (IPM) approaches. Start with beneficial insects, companion planting, and organic deterrents. Neem oil, diatomaceous earth, and companion plants like marigolds can help naturally deter pests."
	case strings.Contains(lower, "fertilizer"), strings.Contains(lower, "nutrient"):
		return "For healthy plant nutrition, consider organic options like compost, worm castings, or fish emulsion. Test your soil pH first - most vegetables prefer 6.0-7.0 pH. Nitrogen promotes leafy growth, phosphorus supports roots and flowers, and potassium strengthens overall plant health."
	case strings.Contains(lower, "soil"):
		return "Good soil is the foundation of successful farming! Test your soil pH and add organic matter like compost to improve structure. Well-draining soil with good organic content supports healthy root development and nutrient uptake."
	case strings.Contains(lower, "season"), strings.Contains(lower, "when"):
		return fmt.Sprintf("Timing depends on your local climate in %s. Generally, cool-season crops (lettuce, peas, broccoli) can handle light frost, while warm-season crops (tomatoes, peppers, squash) need warm soil and no frost risk. Check your local last frost date for planting guidance.", q.Prefs.Region)
	default:
		return fmt.Sprintf("Thank you for your question, %s! Based on general farming principles for %s, I'd recommend consulting your local agricultural extension office for region-specific advice. They often provide free resources and expertise tailored to your exact location and growing conditions.", q.Prefs.Name, q.Prefs.Region)
	}
}
