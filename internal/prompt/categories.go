// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package prompt

import (
	"regexp"
	"strings"
)

// Category bundles the content-type guidance injected into the instruction:
// visual keywords, palette, mood, and how to treat backgrounds and
// caller-supplied reference images.
type Category struct {
	Name                   string
	Keywords               string
	ColorPalette           string
	Mood                   string
	BackgroundStrategy     string
	ReferenceImageGuidance string
}

// categoryRules is the ordered (pattern, bundle) dispatch table. Rules are
// evaluated top to bottom against the lowercased headline+prompt text; the
// first match wins and no match falls through to generalCategory. Order
// matters: "review" appears in both the film and tech patterns.
var categoryRules = []struct {
	pattern  *regexp.Regexp
	category Category
}{
	{
		pattern: regexp.MustCompile(`movie|film|review|cinema|trailer|breakdown`),
		category: Category{
			Name:                   "film",
			Keywords:               "Cinematic atmosphere, movie theater aesthetic, film grain texture. CRITICAL: If user uploaded film poster/banner, preserve it as main background with full detail.",
			ColorPalette:           "Rich teals, warm oranges, deep blacks (Hollywood color grade)",
			Mood:                   "Dramatic, epic, emotionally engaging",
			BackgroundStrategy:     "Preserve uploaded film posters/banners with full detail - they are KEY content, not just decoration",
			ReferenceImageGuidance: "User uploaded film posters/expressions must be sharp, recognizable, and fully visible. NO cropping of faces or poster details.",
		},
	},
	{
		pattern: regexp.MustCompile(`news|election|politics|breaking|analysis|debate`),
		category: Category{
			Name:                   "news",
			Keywords:               "Broadcast studio style, serious journalism aesthetic, TV newsroom feel",
			ColorPalette:           "Red and blue accent themes, clean whites, professional navy",
			Mood:                   "Urgent, trustworthy, authoritative",
			BackgroundStrategy:     "Clean professional backgrounds. If article screenshot uploaded, integrate it prominently.",
			ReferenceImageGuidance: "Uploaded news article images or person photos should be sharp, professional, well-framed",
		},
	},
	{
		pattern: regexp.MustCompile(`tech|gadget|phone|laptop|review|unboxing|ai|software`),
		category: Category{
			Name:                   "tech",
			Keywords:               "Modern tech aesthetic, sleek surfaces, LED glow effects",
			ColorPalette:           "Neon blues, electric purples, chrome metallics, matte blacks",
			Mood:                   "Futuristic, innovative, cutting-edge",
			BackgroundStrategy:     "Clean, modern backgrounds with subtle gradients. Focus on uploaded product images.",
			ReferenceImageGuidance: "Uploaded product photos are CRITICAL - keep them sharp, centered, well-lit with no truncation",
		},
	},
	{
		pattern: regexp.MustCompile(`money|stock|invest|business|entrepreneur|finance|tax`),
		category: Category{
			Name:                   "finance",
			Keywords:               "Professional business setting, corporate aesthetic, wealth symbols",
			ColorPalette:           "Gold accents, deep green (money), navy blue, white",
			Mood:                   "Professional, ambitious, success-oriented",
			BackgroundStrategy:     "Professional, clean backgrounds. Charts/graphs if uploaded should be clearly visible.",
			ReferenceImageGuidance: "Person photos should look professional, confident. Product/chart images sharp and readable.",
		},
	},
	{
		pattern: regexp.MustCompile(`fitness|workout|health|gym|diet|exercise`),
		category: Category{
			Name:                   "fitness",
			Keywords:               "High-energy fitness aesthetic, athletic vibe, gym environment",
			ColorPalette:           "Vibrant reds, energetic oranges, fresh greens",
			Mood:                   "Motivational, energetic, powerful",
			BackgroundStrategy:     "Dynamic, energetic backgrounds. Gym/outdoor settings if uploaded should be vibrant.",
			ReferenceImageGuidance: "Uploaded fitness photos: show full body transformations, keep energetic and motivating",
		},
	},
	{
		pattern: regexp.MustCompile(`game|gaming|gameplay|streamer|esports`),
		category: Category{
			Name:                   "gaming",
			Keywords:               "Gaming aesthetic, RGB lighting, competitive vibe",
			ColorPalette:           "Neon greens, electric blues, vibrant purples, RGB gradients",
			Mood:                   "Exciting, intense, competitive",
			BackgroundStrategy:     "Dark, immersive gaming backgrounds with RGB effects. Game screenshots should be vibrant.",
			ReferenceImageGuidance: "Streamer faces: expressive, well-lit. Game screenshots: sharp, colorful, recognizable",
		},
	},
	{
		pattern: regexp.MustCompile(`recipe|cooking|food|chef|baking|kitchen`),
		category: Category{
			Name:                   "food",
			Keywords:               "Food photography style, kitchen setting, appetizing presentation",
			ColorPalette:           "Warm browns, fresh greens, rich reds, golden yellows",
			Mood:                   "Appetizing, cozy, inviting",
			BackgroundStrategy:     "Warm, inviting kitchen backgrounds. Food photos are hero content - keep detailed.",
			ReferenceImageGuidance: "Uploaded food photos: make them look DELICIOUS - sharp focus, appetizing lighting, full dish visible",
		},
	},
}

// generalCategory is the fallback bundle when no pattern matches.
var generalCategory = Category{
	Name:                   "general",
	Keywords:               "Modern, professional aesthetic",
	ColorPalette:           "Balanced, visually appealing color scheme",
	Mood:                   "Engaging and attention-grabbing",
	BackgroundStrategy:     "Clean, professional background that supports text readability",
	ReferenceImageGuidance: "Uploaded images are important - keep them sharp, well-composed, and fully visible",
}

// DetectCategory infers the content category from the combined prompt and
// headline text. Best effort: it never fails, and no match yields the
// general bundle.
func DetectCategory(promptText, headline string) Category {
	combined := strings.ToLower(promptText + " " + headline)
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(combined) {
			return rule.category
		}
	}
	return generalCategory
}
