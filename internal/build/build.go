package build

// Version of radio. Set to tag in CI during release.
var Version = "0.0.0"
