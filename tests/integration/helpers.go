package integration

import (
	"fmt"
	"os"
	"testing"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

// baseURL returns the API address under test, skipping the suite unless
// integration runs were requested.
func baseURL(t *testing.T) string {
	t.Helper()

	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run integration tests against a live API")
	}

	if url := os.Getenv("API_BASE_URL"); url != "" {
		return url
	}
	return defaultBaseURL
}

// uniqueEmail avoids collisions between reruns against the same database.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@tickmate.test", prefix, time.Now().UnixNano())
}

// LogTestStep logs a test step
func LogTestStep(t *testing.T, format string, args ...interface{}) {
	t.Logf("STEP: "+format, args...)
}

// LogTestResult logs a test result
func LogTestResult(t *testing.T, format string, args ...interface{}) {
	t.Logf("RESULT: "+format, args...)
}
