package models

// Language is the target language for the rendered headline text.
type Language string

const (
	LanguageTelugu  Language = "Telugu"
	LanguageHindi   Language = "Hindi"
	LanguageTamil   Language = "Tamil"
	LanguageMarathi Language = "Marathi"
)

// Size is the coarse output-resolution tier, independent of aspect ratio.
type Size string

const (
	Size1K Size = "1K"
	Size2K Size = "2K"
	Size4K Size = "4K"
)

// AspectRatio is the width:height shape of the output, mapped to a target
// platform placement by the prompt composer.
type AspectRatio string

const (
	RatioLandscape AspectRatio = "16:9"
	RatioSquare    AspectRatio = "1:1"
	RatioPortrait  AspectRatio = "4:5"
	RatioVertical  AspectRatio = "9:16"
)

// Style selects the artistic rendering of the thumbnail.
type Style string

const (
	StyleCinematic  Style = "Cinematic"
	StyleCartoon    Style = "Cartoon"
	StyleSketch     Style = "Sketch"
	Style3DArt      Style = "3D Art"
	StyleMinimalist Style = "Minimalist"
)

// Languages lists every supported headline language.
var Languages = []Language{LanguageTelugu, LanguageHindi, LanguageTamil, LanguageMarathi}

// Sizes lists every resolution tier.
var Sizes = []Size{Size1K, Size2K, Size4K}

// AspectRatios lists every supported output shape.
var AspectRatios = []AspectRatio{RatioLandscape, RatioSquare, RatioPortrait, RatioVertical}

// Styles lists every artistic style.
var Styles = []Style{StyleCinematic, StyleCartoon, StyleSketch, Style3DArt, StyleMinimalist}

// ValidLanguage reports whether l is a member of the language enumeration.
func ValidLanguage(l Language) bool {
	for _, v := range Languages {
		if v == l {
			return true
		}
	}
	return false
}

// ValidSize reports whether s is a member of the size enumeration.
func ValidSize(s Size) bool {
	for _, v := range Sizes {
		if v == s {
			return true
		}
	}
	return false
}

// ValidAspectRatio reports whether r is a member of the aspect-ratio enumeration.
func ValidAspectRatio(r AspectRatio) bool {
	for _, v := range AspectRatios {
		if v == r {
			return true
		}
	}
	return false
}

// ValidStyle reports whether s is a member of the style enumeration.
func ValidStyle(s Style) bool {
	for _, v := range Styles {
		if v == s {
			return true
		}
	}
	return false
}

// GenerationRequest is the validated input to one orchestration run.
// It is ephemeral; only the resulting Thumbnail is persisted.
type GenerationRequest struct {
	Headline        string
	Prompt          string
	Language        Language
	Size            Size
	AspectRatio     AspectRatio
	Style           Style
	ReferenceImages [][]byte
	UseSearch       bool
	EnhancePrompt   bool
}
