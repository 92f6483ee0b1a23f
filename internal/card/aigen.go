package card

// AiCardT1Result is the JSON contract an AI generator returns for a
// declarative card. It mirrors DeclarativePayload plus the definition
// metadata the generator chooses; the aigen package validates it before
// anything downstream sees it.
type AiCardT1Result struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Layout       Layout   `json:"layout,omitempty"`
	DefaultWidth int      `json:"defaultWidth,omitempty"`
	DefaultLimit int      `json:"defaultLimit,omitempty"`
	Columns      []Column `json:"columns"`
	SearchFields []string `json:"searchFields,omitempty"`
	StaticData   []Row    `json:"staticData"`
}

// AiCardT2Result is the JSON contract an AI generator returns for a code
// card. SourceCode is card dialect source, not a complete Go file.
type AiCardT2Result struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	DefaultWidth int    `json:"defaultWidth,omitempty"`
	SourceCode   string `json:"sourceCode"`
}

// Definition converts a validated tier-1 result into a definition ready
// for the catalog.
func (r *AiCardT1Result) Definition() *Definition {
	return &Definition{
		Title:        r.Title,
		Description:  r.Description,
		Tier:         TierDeclarative,
		DefaultWidth: r.DefaultWidth,
		Declarative: &DeclarativePayload{
			DataSource:   DataSourceStatic,
			StaticData:   r.StaticData,
			Columns:      r.Columns,
			Layout:       r.Layout,
			SearchFields: r.SearchFields,
			DefaultLimit: r.DefaultLimit,
		},
	}
}

// Definition converts a validated tier-2 result into a definition ready
// for the catalog. The source still has to survive compilation.
func (r *AiCardT2Result) Definition() *Definition {
	return &Definition{
		Title:        r.Title,
		Description:  r.Description,
		Tier:         TierCode,
		DefaultWidth: r.DefaultWidth,
		Code:         &CodePayload{SourceCode: r.SourceCode},
	}
}
