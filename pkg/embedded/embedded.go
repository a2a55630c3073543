package embedded

import (
	_ "embed"
)

// Embed all prompt data files
//
//go:embed data/prompts/thumbnail_image.txt
var ThumbnailImagePromptTxt []byte

//go:embed data/prompts/variation_hints.txt
var VariationHintsTxt []byte

//go:embed data/prompts/video_suggestions.txt
var VideoSuggestionsPromptTxt []byte

//go:embed data/prompts/enhance_prompt.txt
var EnhancePromptTxt []byte
