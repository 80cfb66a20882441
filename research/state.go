package research

import (
	"fmt"
	"strings"
	"time"
)

// SourceType is a coarse category for a discovered web source.
type SourceType string

const (
	SourceAcademic SourceType = "academic"
	SourceNews     SourceType = "news"
	SourceIndustry SourceType = "industry"
	SourceBlog     SourceType = "blog"
	SourceWiki     SourceType = "wiki"
	SourceOther    SourceType = "other"
)

// Source represents a discovered web source with citation metadata.
// The URL is the identity of a source; two results with the same URL are
// the same source.
type Source struct {
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Snippet       string     `json:"snippet"`
	Approved      bool       `json:"approved"`
	SourceType    SourceType `json:"source_type"`
	Publication   string     `json:"publication,omitempty"`
	PublishedDate string     `json:"published_date,omitempty"`
}

// Citation renders a numbered reference line for the source.
func (s Source) Citation(num int) string {
	parts := make([]string, 0, 4)
	if s.PublishedDate != "" && len(s.PublishedDate) >= 4 {
		parts = append(parts, fmt.Sprintf("(%s)", s.PublishedDate[:4]))
	}
	parts = append(parts, fmt.Sprintf("%q", s.Title))
	if s.Publication != "" {
		parts = append(parts, s.Publication)
	}
	parts = append(parts, s.URL)
	return fmt.Sprintf("[%d] %s", num, strings.Join(parts, ". "))
}

// DocumentChunk is a retrieved slice of a source document, the unit the
// synthesis stage works with. Score is the raw similarity reported by the
// retrieval index.
type DocumentChunk struct {
	Text          string         `json:"text"`
	Score         float64        `json:"score"`
	SourceURL     string         `json:"source_url"`
	SourceTitle   string         `json:"source_title,omitempty"`
	SourceType    SourceType     `json:"source_type,omitempty"`
	PublishedDate string         `json:"published_date,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// State is the research-run record threaded through every stage. Stages
// receive it by value and return an updated copy; the engine owns the
// authoritative value for the duration of a run.
type State struct {
	// User input
	OriginalQuery string `json:"original_query"`
	RefinedQuery  string `json:"refined_query,omitempty"`

	// Clarification stage
	ClarificationQuestions []string `json:"clarification_questions,omitempty"`
	UserResponses          []string `json:"user_responses,omitempty"`
	ClarificationComplete  bool     `json:"clarification_complete"`

	// Search stage
	SearchQueries   []string       `json:"search_queries,omitempty"`
	Sources         []Source       `json:"sources,omitempty"`
	ApprovedSources []Source       `json:"approved_sources,omitempty"`
	SourceDiversity map[string]int `json:"source_diversity,omitempty"`

	// Analyze stage
	ChunksStored     int  `json:"chunks_stored"`
	AnalysisComplete bool `json:"analysis_complete"`

	// Synthesize stage
	RetrievedChunks []DocumentChunk `json:"retrieved_chunks,omitempty"`
	DraftReport     string          `json:"draft_report,omitempty"`

	// Reflect stage
	QualityScore     float64 `json:"quality_score"`
	NeedsRevision    bool    `json:"needs_revision"`
	RevisionFeedback string  `json:"revision_feedback,omitempty"`
	IterationCount   int     `json:"iteration_count"`
	MaxIterations    int     `json:"max_iterations"`

	// Final output
	FinalReport string `json:"final_report,omitempty"`

	// Workflow control
	CurrentStage string `json:"current_stage,omitempty"`
	Error        string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DefaultMaxIterations bounds the revise loop when the caller does not
// configure one.
const DefaultMaxIterations = 3

// NewState creates the initial state for a research run.
func NewState(query string) State {
	return State{
		OriginalQuery: query,
		MaxIterations: DefaultMaxIterations,
		CreatedAt:     time.Now(),
	}
}

// Query returns the refined query when clarification produced one, and the
// original query otherwise.
func (s State) Query() string {
	if s.RefinedQuery != "" {
		return s.RefinedQuery
	}
	return s.OriginalQuery
}

// Failed reports whether the run has recorded a fatal error.
func (s State) Failed() bool {
	return s.Error != ""
}
