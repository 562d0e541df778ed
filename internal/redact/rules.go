package redact

// DefaultRules returns the reference redaction configuration.
//
// Nineteen tables carry at least one rule. The split by kind:
//
//   - path: any column holding an absolute file path
//   - root_path: columns holding the project root itself
//   - secret: captured secret/env values
//   - code: raw source text (bodies, snippets, comment text)
//   - blob_hex: binary digests stored as blobs
//
// Tables absent from this map upload verbatim; their rows carry only
// derived metrics and identifiers, never paths or source text.
func DefaultRules() Rules {
	return Rules{
		"files": {
			"path": KindPath,
		},
		"file_hashes": {
			"path":         KindPath,
			"content_hash": KindBlobHex,
		},
		"symbols": {
			"file_path": KindPath,
			"snippet":   KindCode,
		},
		"symbol_refs": {
			"file_path": KindPath,
		},
		"imports": {
			"file_path": KindPath,
		},
		"exports": {
			"file_path": KindPath,
		},
		"functions": {
			"file_path": KindPath,
			"body":      KindCode,
		},
		"methods": {
			"file_path": KindPath,
			"body":      KindCode,
		},
		"classes": {
			"file_path": KindPath,
		},
		"env_vars": {
			"file_path": KindPath,
			"value":     KindSecret,
		},
		"secrets": {
			"file_path": KindPath,
			"value":     KindSecret,
			"context":   KindCode,
		},
		"config_files": {
			"path": KindPath,
			"raw":  KindCode,
		},
		"diagnostics": {
			"file_path": KindPath,
			"snippet":   KindCode,
		},
		"lint_results": {
			"file_path": KindPath,
		},
		"todos": {
			"file_path": KindPath,
			"text":      KindCode,
		},
		"fixmes": {
			"file_path": KindPath,
			"text":      KindCode,
		},
		"comments": {
			"file_path": KindPath,
			"text":      KindCode,
		},
		"hotspots": {
			"file_path": KindPath,
		},
		"sessions": {
			"project_root": KindRootPath,
		},
	}
}
