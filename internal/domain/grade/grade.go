// Package grade maps a jump height to one of six performance tiers.
package grade

// Category is one performance tier. MinCm is the inclusive lower bound;
// the upper bound is the next tier's MinCm (the last tier is unbounded).
type Category struct {
	Label       string  `json:"label"`
	MinCm       float64 `json:"min_cm"`
	Description string  `json:"description"`
}

// categories is ordered ascending by MinCm. Static configuration data,
// never mutated at runtime.
var categories = []Category{
	{
		Label:       "Beginner",
		MinCm:       0,
		Description: "A starting point. Consistent leg and core work will move this number quickly.",
	},
	{
		Label:       "Average",
		MinCm:       30,
		Description: "Around the typical adult vertical jump. A solid base to build explosive power on.",
	},
	{
		Label:       "Good",
		MinCm:       46,
		Description: "Clearly above average. Recreational-athlete territory.",
	},
	{
		Label:       "Great",
		MinCm:       56,
		Description: "Strong explosive power, comparable to trained team-sport athletes.",
	},
	{
		Label:       "Excellent",
		MinCm:       66,
		Description: "Elite amateur level. Jumps like this take years of dedicated training.",
	},
	{
		Label:       "Elite",
		MinCm:       76,
		Description: "Professional-athlete range, approaching the limits of human jumping ability.",
	},
}

// Classify returns the tier for a height in centimeters. Total over all
// finite non-negative inputs: values below the lowest boundary map to the
// first tier, values above the highest to the last. Never fails.
func Classify(heightCm float64) Category {
	result := categories[0]
	for _, c := range categories[1:] {
		if heightCm < c.MinCm {
			break
		}
		result = c
	}
	return result
}

// Categories returns the full tier table, ordered ascending by MinCm.
// Callers must not mutate the returned slice.
func Categories() []Category {
	return categories
}
