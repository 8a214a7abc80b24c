// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package prompt composes the natural-language generation instruction sent
// to the image model. Composition is a pure function of its inputs: no I/O,
// no randomness, and identical inputs yield byte-identical text.
package prompt

import (
	"fmt"
	"strings"

	"thumbforge/internal/models"
)

// Instruction is the composed model input: one instruction text followed by
// the caller's reference images as ordered binary payloads.
type Instruction struct {
	Text            string
	ReferenceImages [][]byte
}

// styleInstruction maps a style to its visual/rendering description.
// Unrecognized styles degrade to a generic description rather than failing.
func styleInstruction(s models.Style) string {
	switch s {
	case models.StyleCinematic:
		return "Cinematic lighting, high-end photography, professional, deep shadows, and high contrast."
	case models.StyleCartoon:
		return "Vibrant, saturated colors, bold outlines, playful and energetic cartoon illustration style."
	case models.StyleSketch:
		return "Hand-drawn charcoal or pencil sketch aesthetic, artistic textures, and creative line work."
	case models.Style3DArt:
		return "Modern 3D render, Octane render style, soft plastic or metallic textures, volumetric lighting."
	case models.StyleMinimalist:
		return "Flat vector design, clean negative space, simple geometric shapes, and a limited sophisticated color palette."
	default:
		return "Professional and modern aesthetic."
	}
}

// fontInstruction maps a style to its typography description.
func fontInstruction(s models.Style) string {
	switch s {
	case models.StyleCinematic:
		return "Bold, dramatic, movie-poster style font with drop shadows and metallic or gradient effects"
	case models.StyleCartoon:
		return "Chunky, playful, thick outlined font with vibrant colors, comic book style"
	case models.StyleSketch:
		return "Hand-lettered, artistic font with texture, as if drawn by hand"
	case models.Style3DArt:
		return "Modern, clean 3D extruded font with glossy finish or neon glow"
	case models.StyleMinimalist:
		return "Geometric Sans-Serif, thin or medium weight, elegant spacing"
	default:
		return "Bold, modern Sans-Serif font with high contrast"
	}
}

// platformName maps an aspect ratio to the human-readable target placement.
func platformName(r models.AspectRatio) string {
	switch r {
	case models.RatioLandscape:
		return "YouTube Thumbnail / Standard Landscape"
	case models.RatioSquare:
		return "Instagram / LinkedIn Square Post"
	case models.RatioPortrait:
		return "LinkedIn / Instagram Portrait Post"
	case models.RatioVertical:
		return "Instagram / Facebook / YouTube Shorts Story/Reel"
	default:
		return "Social Media Post"
	}
}

// headlineInstruction returns the text-overlay block: verbatim rendering of
// a caller-supplied headline, or an instruction to invent a short
// high-engagement one in the target language.
func headlineInstruction(headline string, language models.Language, font string) string {
	if strings.TrimSpace(headline) != "" {
		return fmt.Sprintf(`TEXT OVERLAY (CRITICAL): Render the exact text %q in %s language.
Font Style: %s.
Text must be the dominant visual element - large, bold, and perfectly readable.
NO SPELLING ERRORS. Text must be crisp and sharp.`, headline, language, font)
	}
	return fmt.Sprintf(`TEXT OVERLAY: Generate a highly viral, attention-grabbing headline in %s using exactly 3-6 words based on visual context.
Font Style: %s.`, language, font)
}

// Compose builds the full generation instruction from the request and the
// optional search context. Reference payloads are passed through in caller
// order; their count is validated by the orchestrator, not here.
func Compose(req models.GenerationRequest, searchContext string) Instruction {
	platform := platformName(req.AspectRatio)
	style := styleInstruction(req.Style)
	category := DetectCategory(req.Prompt, req.Headline)

	if searchContext == "" {
		searchContext = "None"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert YouTube Thumbnail Designer and Social Media Graphics Specialist known for creating high-CTR (Click-Through Rate) images for %s.\n\n", platform)
	fmt.Fprintf(&b, "Task: Create a professional-quality %s thumbnail (%s aspect ratio, %s resolution).\n\n", platform, req.AspectRatio, req.Size)

	fmt.Fprintf(&b, `TECHNICAL QUALITY REQUIREMENTS:
- Resolution: Maximum quality for %s (1k/2k/4k as specified) - crystal clear, no pixelation
- Render Style: Photorealistic, professional-grade as seen on top YouTube channels
- Sharpness: Tack-sharp focus on all key elements, especially text and uploaded reference images
- Reference Images: If user uploaded images, they are CRITICAL - preserve them clearly, do not truncate faces/products/posters

`, req.Size)

	fmt.Fprintf(&b, "ARTISTIC STYLE: %s\n", style)
	b.WriteString(headlineInstruction(req.Headline, req.Language, fontInstruction(req.Style)))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, `CATEGORY CONTEXT (%s %s THUMBNAIL):
Visual Keywords: %s
Color Palette: %s
Mood & Tone: %s

BACKGROUND STRATEGY:
%s

REFERENCE IMAGE REQUIREMENTS:
%s
`, strings.ToUpper(category.Mood), strings.ToUpper(platform),
		category.Keywords, category.ColorPalette, category.Mood,
		category.BackgroundStrategy, category.ReferenceImageGuidance)

	if n := len(req.ReferenceImages); n > 0 {
		fmt.Fprintf(&b, "USER PROVIDED %d REFERENCE IMAGE(S) - These are CRITICAL PRIMARY CONTENT. Preserve them clearly, sharply, and completely (no truncation).\n", n)
	}

	// Fixed composition checklist — always included regardless of category.
	fmt.Fprintf(&b, `
CRITICAL COMPOSITION RULES:
1. NO TRUNCATION: Ensure the entire subject (people, characters, or key objects) is fully visible within the frame.
2. DO NOT cut off heads, faces, hair, or limbs. The subject must be contained entirely within the image boundaries.
3. SPACING: Provide enough padding around the main subject so it looks natural and not cramped.
4. VISIBILITY: The %s text must be the central focus, using bold, thick, stylized typography that is extremely readable against the background.
5. LAYOUT: Place the headline strategically. Ensure it doesn't cover faces or key focal points.
6. SAFE ZONES: For YouTube, keep the bottom right clear for timestamps. For vertical formats, keep important content away from extreme edges.
7. REFERENCE IMAGE HANDLING (CRITICAL):
   - If user uploaded images (faces, expressions, film posters, product shots, news articles), they are PRIMARY content
   - Uploaded faces/people: Keep sharp, centered, well-lit, NO truncation of heads/bodies
   - Uploaded film posters/banners: Preserve detail, use as main background, keep recognizable
   - Uploaded product images: Keep sharp, prominent placement, clean presentation
   - Uploaded news article screenshots: Preserve readability, integrate naturally
   - NEVER crop out important parts of uploaded images - show them completely within safe zones
8. LIGHTING & DEPTH:
   - Use professional lighting appropriate for content type
   - Film/Movie content: Cinematic lighting, preserve background poster/banner detail
   - News content: Clean, bright, trustworthy broadcast-style lighting
   - Tech/Product: Studio lighting with clean backgrounds or subtle gradients
   - For people/faces: Flattering lighting with proper fill and rim lights
9. BACKGROUND STRATEGY (Content-Type Dependent):
   - Film/Movie: Background (posters, banners, scenes) is IMPORTANT - keep detailed and recognizable
   - News: Clean professional backgrounds, integrate article images if provided
   - Tech: Clean, modern backgrounds that don't distract from product
   - General: Ensure background supports text readability without overwhelming it

TEXT RENDERING REQUIREMENTS:
1. SPELLING: Render %q with ZERO spelling mistakes. Each letter must be pixel-perfect.
2. READABILITY: Text must have extreme contrast against background (use outline, shadow, or contrasting background box if needed)
3. PLACEMENT: Position text in the upper 2/3 of the image for maximum impact
4. SIZE: Text should occupy 30-50%% of the canvas for high visibility
5. STYLE CONSISTENCY: Typography must match the %s aesthetic perfectly

CONTEXT FROM SEARCH: %s.
VISUAL DESCRIPTION: %s.
The final thumbnail must be ready to publish on %s without any editing, matching the quality of top channels.`,
		req.Language, req.Headline, req.Style, searchContext, req.Prompt, platform)

	return Instruction{
		Text:            b.String(),
		ReferenceImages: req.ReferenceImages,
	}
}
