package async

// Import go-check so its flags are defined and parsed. This prevents failures
// in broader integration test runs where custom go-check flags are passed to
// all packages.
import _ "gopkg.in/check.v1"
