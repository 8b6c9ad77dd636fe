//go:build windows

package winapi

import (
	"fmt"
	"strconv"

	"golang.org/x/sys/windows/registry"
)

const currentVersionKey = `SOFTWARE\Microsoft\Windows NT\CurrentVersion`

// OSBuildNumber reads the running OS build number from the registry.
func OSBuildNumber() (int, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, currentVersionKey, registry.QUERY_VALUE)
	if err != nil {
		return 0, fmt.Errorf("winapi: open CurrentVersion key: %w", err)
	}
	defer key.Close()

	s, _, err := key.GetStringValue("CurrentBuildNumber")
	if err != nil {
		// Older systems populate CurrentBuild instead.
		s, _, err = key.GetStringValue("CurrentBuild")
		if err != nil {
			return 0, fmt.Errorf("winapi: read build number: %w", err)
		}
	}

	build, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("winapi: parse build number %q: %w", s, err)
	}
	return build, nil
}
