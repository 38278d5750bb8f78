package genai

import "fmt"

// ActionKind describes what a built-in action produces and how its result
// enters the edit history.
type ActionKind int

const (
	// KindImage replaces the rendered image. The caller commits a state
	// with the new image handle and the mask cleared (masks are
	// single-use per generative edit).
	KindImage ActionKind = iota
	// KindMask produces a black-and-white mask committed as the state's
	// mask reference.
	KindMask
	// KindText produces advisory text only; history is untouched.
	KindText
)

// Action is a built-in generative operation with a canned instruction.
type Action struct {
	Name   string
	Prompt string
	Kind   ActionKind

	// NeedsMask requires a committed mask before the action can run.
	NeedsMask bool
}

// Built-in actions mirroring the editor's AI tool palette.
var actions = map[string]Action{
	"enhance": {
		Name:   "enhance",
		Prompt: "Subtly enhance the overall quality of this image, improving lighting, colors, and clarity for a natural, professional look.",
		Kind:   KindImage,
	},
	"sky-enhance": {
		Name:   "sky-enhance",
		Prompt: "Dramatically enhance the sky in this image, making the colors more vibrant and adding definition to the clouds.",
		Kind:   KindImage,
	},
	"retouch-skin": {
		Name:   "retouch-skin",
		Prompt: "Perform professional-grade skin smoothening and blemish removal. Focus on a natural look, retaining skin texture.",
		Kind:   KindImage,
	},
	"denoise": {
		Name:   "denoise",
		Prompt: "Perform AI-based denoising on this image, removing noise while preserving details.",
		Kind:   KindImage,
	},
	"upscale": {
		Name:   "upscale",
		Prompt: "Upscale this image to a higher resolution using AI. Add detail and sharpness where appropriate.",
		Kind:   KindImage,
	},
	"lens-correction": {
		Name:   "lens-correction",
		Prompt: "Correct for lens distortion and chromatic aberration in this image. Return only the final image.",
		Kind:   KindImage,
	},
	"expand": {
		Name:   "expand",
		Prompt: "Expand the canvas of this image by 20% on all sides, filling in the new areas with content that logically and realistically extends the original scene.",
		Kind:   KindImage,
	},
	"remove-subject": {
		Name:      "remove-subject",
		Prompt:    "The user has provided a mask. Your task is to completely remove the subject within the masked (white) area and intelligently fill the resulting empty space with a realistic background that seamlessly matches the surrounding image.",
		Kind:      KindImage,
		NeedsMask: true,
	},
	"mask-subject": {
		Name:   "mask-subject",
		Prompt: "Create a black and white mask of the main subject. The subject must be perfectly white and the background black.",
		Kind:   KindMask,
	},
	"mask-sky": {
		Name:   "mask-sky",
		Prompt: "Create a black and white mask of the sky. The sky must be perfectly white and everything else black.",
		Kind:   KindMask,
	},
	"composition-advice": {
		Name:   "composition-advice",
		Prompt: "Analyze the composition of this photograph and give concise, actionable advice on how to improve it.",
		Kind:   KindText,
	},
}

// Refocus bokeh strengths.
var refocusPrompts = map[string]string{
	"subtle":   "Refocus the image on the main subject, applying a realistic, subtle bokeh effect to the background.",
	"standard": "Refocus the image on the main subject, applying a standard, creamy bokeh effect to the background.",
	"artistic": "Refocus the image on the main subject, applying a strong, artistic bokeh effect with circular highlights to the background.",
}

// LookupAction resolves a built-in action by name. Refocus variants are
// addressed as "refocus-subtle", "refocus-standard", "refocus-artistic".
func LookupAction(name string) (Action, bool) {
	if a, ok := actions[name]; ok {
		return a, true
	}
	const prefix = "refocus-"
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		if p, ok := refocusPrompts[name[len(prefix):]]; ok {
			return Action{Name: name, Prompt: p, Kind: KindImage}, true
		}
	}
	return Action{}, false
}

// ActionNames returns the addressable built-in action names.
func ActionNames() []string {
	names := make([]string, 0, len(actions)+len(refocusPrompts))
	for n := range actions {
		names = append(names, n)
	}
	for n := range refocusPrompts {
		names = append(names, "refocus-"+n)
	}
	return names
}

// FillPrompt wraps a user prompt for generative fill of the masked area.
func FillPrompt(userPrompt string) string {
	return fmt.Sprintf(`Based on the user prompt "%s", seamlessly replace the masked area in the image.`, userPrompt)
}
