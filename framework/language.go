package framework

import (
	"path/filepath"
	"strings"
)

// Language identifies the target programming language of a request.
type Language string

const (
	LanguagePython  Language = "python"
	LanguageCPP     Language = "cpp"
	LanguageC       Language = "c"
	LanguageUnknown Language = "unknown"
)

// ParseLanguage normalizes user or model supplied language tags. Aliases such
// as "c++" and "py" collapse onto the canonical constants; anything
// unrecognised maps to LanguageUnknown.
func ParseLanguage(raw string) Language {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "python", "py", "python3":
		return LanguagePython
	case "cpp", "c++", "cxx", "cc", "hpp", "h":
		return LanguageCPP
	case "c":
		return LanguageC
	default:
		return LanguageUnknown
	}
}

// LanguageFromFile infers the language from a file extension.
func LanguageFromFile(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return LanguagePython
	case ".cpp", ".hpp", ".h", ".cc", ".cxx":
		return LanguageCPP
	case ".c":
		return LanguageC
	default:
		return LanguageUnknown
	}
}

// Known reports whether the language has a dedicated formatter/validator.
func (l Language) Known() bool {
	switch l {
	case LanguagePython, LanguageCPP, LanguageC:
		return true
	}
	return false
}

// Extension returns the source file extension used when the language has to
// be written to disk.
func (l Language) Extension() string {
	switch l {
	case LanguagePython:
		return ".py"
	case LanguageCPP:
		return ".cpp"
	case LanguageC:
		return ".c"
	default:
		return ".txt"
	}
}

func (l Language) String() string {
	if l == "" {
		return string(LanguageUnknown)
	}
	return string(l)
}
