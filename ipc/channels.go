package ipc

import "slices"

// Channel groups a renderer may use. A channel outside these groups is never dispatched.
var (
	BaseChannels = []string{
		"app:hello",
		"app:message",
	}

	WindowChannels = []string{
		"window:minimize",
		"window:maximize",
		"window:close",
	}

	EnvironmentChannels = []string{
		"env:get",
	}

	UpdateChannels = []string{
		"app:update-available",
		"app:update-downloaded",
		"app:update-error",
		"app:check-updates",
		"app:download-update",
	}

	PreferencesChannels = []string{
		"preferences:get",
		"preferences:set",
		"preferences:reset",
	}

	MenuChannels = []string{
		"menu:open-settings",
		"menu:check-updates",
	}
)

// ValidChannels returns every whitelisted channel
func ValidChannels() []string {
	return slices.Concat(
		BaseChannels,
		WindowChannels,
		EnvironmentChannels,
		UpdateChannels,
		PreferencesChannels,
		MenuChannels,
	)
}

// IsAllowed reports whether channel is whitelisted
func IsAllowed(channel string) bool {
	return slices.Contains(ValidChannels(), channel)
}
