package mainboilerplate

// Version and BuildDate are stamped by the release build; both default to
// placeholders for local/dev builds.
var (
	Version   = "dev"
	BuildDate = "unknown"
)
