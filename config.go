package arbor

import "github.com/zoobzio/zyn"

// Default configuration for arbor steps.
// These can be overridden per-step using builder methods.
var (
	// DefaultReasoningTemperature is used for single-model generation when no
	// step-specific default applies. Defaults to deterministic (low
	// temperature) for consistent outputs.
	DefaultReasoningTemperature = zyn.DefaultTemperatureDeterministic

	// DefaultDraftTemperature is used by Draft steps. Defaults to creative
	// (higher temperature) so first drafts explore rather than converge.
	DefaultDraftTemperature = zyn.DefaultTemperatureCreative

	// DefaultCritiqueTemperature is used by Critique steps. Defaults to
	// analytical for focused, specific reviews.
	DefaultCritiqueTemperature = zyn.DefaultTemperatureAnalytical

	// DefaultImproveTemperature is used by Improve steps. Defaults to
	// deterministic so the final rewrite stays close to the reviewed draft.
	DefaultImproveTemperature = zyn.DefaultTemperatureDeterministic
)
