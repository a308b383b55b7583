package topic

import (
	"strings"

	"git.home.luguber.info/inful/doctopics/internal/foundation/normalization"
)

// Kind is the closed set of topic kinds.
type Kind int

const (
	KindUnknown Kind = iota
	KindModule
	KindClass
	KindStructure
	KindEnumeration
	KindProtocol
	KindTypeAlias
	KindAssociatedType
	KindGlobalVariable
	KindFunction
	KindOperator
	KindMacro
	KindEnumerationCase
	KindInitializer
	KindInstanceMethod
	KindInstanceProperty
	KindSubscript
	KindTypeMethod
	KindTypeProperty
	KindTypeSubscript
	KindExtension
	KindArticle
	KindTutorial
)

type kindInfo struct {
	id    string
	title string
	name  string
}

var kindTable = map[Kind]kindInfo{
	KindUnknown:          {"unknown", "Other", "Unknown"},
	KindModule:           {"module", "Modules", "Framework"},
	KindClass:            {"class", "Classes", "Class"},
	KindStructure:        {"struct", "Structures", "Structure"},
	KindEnumeration:      {"enum", "Enumerations", "Enumeration"},
	KindProtocol:         {"protocol", "Protocols", "Protocol"},
	KindTypeAlias:        {"typealias", "Type Aliases", "Type Alias"},
	KindAssociatedType:   {"associatedtype", "Associated Types", "Associated Type"},
	KindGlobalVariable:   {"var", "Global Variables", "Global Variable"},
	KindFunction:         {"func", "Functions", "Function"},
	KindOperator:         {"func.op", "Operators", "Operator"},
	KindMacro:            {"macro", "Macros", "Macro"},
	KindEnumerationCase:  {"enum.case", "Enumeration Cases", "Case"},
	KindInitializer:      {"init", "Initializers", "Initializer"},
	KindInstanceMethod:   {"method", "Instance Methods", "Instance Method"},
	KindInstanceProperty: {"property", "Instance Properties", "Instance Property"},
	KindSubscript:        {"subscript", "Subscripts", "Subscript"},
	KindTypeMethod:       {"type.method", "Type Methods", "Type Method"},
	KindTypeProperty:     {"type.property", "Type Properties", "Type Property"},
	KindTypeSubscript:    {"type.subscript", "Type Subscripts", "Type Subscript"},
	KindExtension:        {"extension", "Extensions", "Extension"},
	KindArticle:          {"article", "Articles", "Article"},
	KindTutorial:         {"tutorial", "Tutorials", "Tutorial"},
}

var kindNormalizer = func() *normalization.Normalizer[Kind] {
	values := make(map[string]Kind, 3*len(kindTable))
	for k, info := range kindTable {
		if k == KindUnknown {
			continue
		}
		values[info.id] = k
		values[info.name] = k
		values[info.title] = k
	}
	values["ivar"] = KindInstanceProperty
	values["op"] = KindOperator
	values["associated-type"] = KindAssociatedType
	return normalization.NewNormalizer(values, KindUnknown)
}()

// ParseSymbolKind maps a symbol kind identifier onto a Kind. It accepts the
// raw identifiers found in symbol graphs ("swift.struct", "swift.type.method"),
// bare disambiguation suffixes ("struct") and display names ("Structure").
func ParseSymbolKind(s string) Kind {
	s = normalization.Lowercase(s)
	if lang, rest, ok := strings.Cut(s, "."); ok && languageNormalizer.Normalize(lang) != LanguageUnknown {
		s = rest
	}
	return kindNormalizer.Normalize(s)
}

// Identifier returns the short identifier used as a link disambiguation suffix.
func (k Kind) Identifier() string { return kindTable[k].id }

// Title returns the plural title used for automatic Topics groups.
func (k Kind) Title() string { return kindTable[k].title }

// Name returns the singular display name of the kind.
func (k Kind) Name() string { return kindTable[k].name }

func (k Kind) String() string { return k.Identifier() }

// IsSymbol reports whether k is a symbol kind.
func (k Kind) IsSymbol() bool {
	switch k {
	case KindUnknown, KindArticle, KindTutorial:
		return false
	default:
		return true
	}
}

// IsArticle reports whether k is an authored article.
func (k Kind) IsArticle() bool { return k == KindArticle }

// IsTutorial reports whether k is a tutorial.
func (k Kind) IsTutorial() bool { return k == KindTutorial }

// IsFunctionLike reports whether symbols of this kind carry a parameter list
// in their name, for example "foo(_:)".
func (k Kind) IsFunctionLike() bool {
	switch k {
	case KindFunction, KindOperator, KindMacro, KindInitializer, KindInstanceMethod,
		KindTypeMethod, KindSubscript, KindTypeSubscript:
		return true
	default:
		return false
	}
}

// IsTypeLevelMember reports whether k is a static member kind.
func (k Kind) IsTypeLevelMember() bool {
	switch k {
	case KindTypeMethod, KindTypeProperty, KindTypeSubscript:
		return true
	default:
		return false
	}
}
