// Package events defines the records streamed to a job's listener.
package events

import "github.com/maxvaer/dirgraph/internal/scanner"

// Type identifies an event.
type Type string

const (
	TypeStage    Type = "stage"
	TypeMeta     Type = "meta"
	TypeProgress Type = "progress"
	TypeFound    Type = "found"
	TypeError    Type = "error"
	TypeCanceled Type = "canceled"
	TypeDone     Type = "done"
)

// Stage names, in pipeline order.
const (
	StageIndexing    = "indexing_lists"
	StageProbing     = "probing_target"
	StageChoosing    = "choosing_wordlists"
	StageBuilding    = "building_candidates"
	StageFallback    = "fallback_candidates"
	StageBaseline    = "soft_404_baseline"
	StageEnumerating = "enumeration_started"
)

// Meta describes the run once candidates are known.
type Meta struct {
	Wordlists       []string `json:"wordlists"`
	TotalCandidates int      `json:"total_candidates"`
	Exts            []string `json:"exts"`
	Signals         []string `json:"signals,omitempty"`
}

// Summary counts the reported findings by status class.
type Summary struct {
	TotalTested  int `json:"total_tested"`
	OK200        int `json:"ok_200"`
	Forbidden403 int `json:"forbidden_403"`
	Auth401      int `json:"auth_401"`
	Redirects30x int `json:"redirects_30x"`
}

// Result is the payload of the done event.
type Result struct {
	Summary  Summary                `json:"summary"`
	Findings []*scanner.ProbeResult `json:"findings"`
}

// Event is one streamed record. Only the fields relevant to Type are set.
type Event struct {
	Type  Type   `json:"type"`
	Stage string `json:"stage,omitempty"`
	*Meta
	Value   *float64             `json:"value,omitempty"`
	Item    *scanner.ProbeResult `json:"item,omitempty"`
	Result  *Result              `json:"result,omitempty"`
	Message string               `json:"message,omitempty"`
}

// Terminal reports whether e ends a job.
func (e Event) Terminal() bool {
	return e.Type == TypeDone || e.Type == TypeCanceled
}

func Stage(name string) Event { return Event{Type: TypeStage, Stage: name} }

func MetaEvent(m Meta) Event { return Event{Type: TypeMeta, Meta: &m} }

func Progress(v float64) Event { return Event{Type: TypeProgress, Value: &v} }

func Found(item *scanner.ProbeResult) Event { return Event{Type: TypeFound, Item: item} }

func Error(msg string) Event { return Event{Type: TypeError, Message: msg} }

func Canceled() Event { return Event{Type: TypeCanceled} }

func Done(r Result) Event { return Event{Type: TypeDone, Result: &r} }
