package libmain

import (
	"time"

	"github.com/phuslu/log"
)

// EnsurePermissions asks for the "all files access" capability and waits for
// the user. The settings screen gives no completion callback, so this sleeps
// delay between checks, at most attempts times, and reports true once the
// attempts run out regardless of the outcome. Only a host error yields false.
func EnsurePermissions(host Host, activity Activity, appID string, attempts int, delay time.Duration) bool {
	for i := 0; i < attempts; i++ {
		granted, err := host.IsExternalStorageManager()
		if err != nil {
			log.Error().Msgf("Failed to call Environment.isExternalStorageManager(): %v", err)
			return false
		}
		log.Info().Msgf("Fetch of isExternalStorageManager(): %t", granted)
		if granted {
			return true
		}

		log.Debug().Msgf("Attempt %d to show intent for MANAGE APP ALL FILES ACCESS PERMISSION", i+1)
		if err := host.RequestAllFilesAccess(activity, appID); err != nil {
			log.Error().Msgf("Failed to start settings activity for %s: %v", appID, err)
			return false
		}
		time.Sleep(delay)
	}
	return true
}
