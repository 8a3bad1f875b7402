package config

import "time"

// Version is the current version of jspp
const Version = "v0.4.0"

// Author is the author of the tool
const Author = "@lcalzada-xor"

// Default Values
const (
	DefaultConcurrency = 4
	DefaultTimeout     = 10 * time.Second
	DefaultCompiler    = "c++"
	DefaultStandard    = "c++23"
	DefaultOutDir      = "jspp-out"
	DefaultFormat      = "human"
	DefaultRateLimit   = 10
	DefaultUserAgent   = "jspp/" + Version
)

// RuntimeHeader is the header every translated unit includes first.
const RuntimeHeader = "index.hpp"

// ProjectFile is the project file looked up in the working directory.
const ProjectFile = "jspp.yaml"

// SourceExtensions are the input extensions accepted by the loader.
var SourceExtensions = []string{
	".js",
	".mjs",
	".cjs",
	".ts",
	".mts",
	".cts",
}
