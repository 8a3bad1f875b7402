package analysis

// Builtins are the global names the runtime provides under jspp::global.
var Builtins = []string{
	"AggregateError",
	"Array",
	"ArrayBuffer",
	"BigInt",
	"Boolean",
	"DataView",
	"Date",
	"Error",
	"EvalError",
	"Function",
	"Infinity",
	"Intl",
	"JSON",
	"Map",
	"Math",
	"NaN",
	"Number",
	"Object",
	"Promise",
	"Proxy",
	"RangeError",
	"ReferenceError",
	"Reflect",
	"RegExp",
	"Set",
	"String",
	"Symbol",
	"SyntaxError",
	"TypeError",
	"URIError",
	"Uint8Array",
	"WeakMap",
	"WeakRef",
	"WeakSet",
	"clearInterval",
	"clearTimeout",
	"console",
	"decodeURIComponent",
	"encodeURIComponent",
	"globalThis",
	"isFinite",
	"isNaN",
	"parseFloat",
	"parseInt",
	"performance",
	"process",
	"queueMicrotask",
	"setInterval",
	"setTimeout",
	"structuredClone",
	"undefined",
}

// Reserved names belong to the generated code and the runtime namespace.
var Reserved = map[string]bool{
	"std":       true,
	"jspp":      true,
	"AnyValue":  true,
	"Constants": true,
	"Exception": true,
	"Scheduler": true,
	"co_await":  true,
	"co_yield":  true,
	"co_return": true,
}
