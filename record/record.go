package record

import (
	"bytes"
	"encoding/binary"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status int

const (
	StatusWaiting             Status = 0
	StatusAccepted            Status = 1
	StatusWrongAnswer         Status = 2
	StatusTimeLimitExceeded   Status = 3
	StatusMemoryLimitExceeded Status = 4
	StatusOutputLimitExceeded Status = 5
	StatusRuntimeError        Status = 6
	StatusCompileError        Status = 7
	StatusSystemError         Status = 8
	StatusCanceled            Status = 9
	StatusEtc                 Status = 10
	StatusJudging             Status = 20
	StatusCompiling           Status = 21
	StatusFetched             Status = 22
	StatusIgnored             Status = 30
)

var statusNames = map[Status]string{
	StatusWaiting:             "waiting",
	StatusAccepted:            "accepted",
	StatusWrongAnswer:         "wrong_answer",
	StatusTimeLimitExceeded:   "time_limit_exceeded",
	StatusMemoryLimitExceeded: "memory_limit_exceeded",
	StatusOutputLimitExceeded: "output_limit_exceeded",
	StatusRuntimeError:        "runtime_error",
	StatusCompileError:        "compile_error",
	StatusSystemError:         "system_error",
	StatusCanceled:            "canceled",
	StatusEtc:                 "etc",
	StatusJudging:             "judging",
	StatusCompiling:           "compiling",
	StatusFetched:             "fetched",
	StatusIgnored:             "ignored",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal reports whether s is a judge outcome.
func (s Status) IsTerminal() bool {
	return (s >= StatusAccepted && s <= StatusEtc) || s == StatusIgnored
}

// IsActive reports whether a worker currently holds the record.
func (s Status) IsActive() bool {
	return s == StatusJudging || s == StatusCompiling || s == StatusFetched
}

type Type int

const (
	TypeSubmission Type = 0
	TypePretest    Type = 1
	TypeSystemTest Type = 2
)

type CodeType int

const (
	CodeTypeText CodeType = 0
	CodeTypeTar  CodeType = 1
	CodeTypeZip  CodeType = 2
	CodeTypeRar  CodeType = 3
)

type CaseResult struct {
	Status    Status `json:"status" dynamodbav:"status"`
	Score     int    `json:"score" dynamodbav:"score"`
	TimeMs    int    `json:"time_ms" dynamodbav:"time_ms"`
	MemoryKiB int    `json:"memory_kib" dynamodbav:"memory_kib"`
	Message   string `json:"message,omitempty" dynamodbav:"message,omitempty"`
}

type Record struct {
	ID        uuid.UUID  `json:"rid"`
	DomainID  string     `json:"domain_id"`
	ProblemID string     `json:"pid"`
	UID       uuid.UUID  `json:"uid"`
	ContestID *uuid.UUID `json:"tid,omitempty"`

	Lang     string   `json:"lang"`
	Code     string   `json:"code,omitempty"`
	CodeBlob string   `json:"code_blob,omitempty"` // external storage handle
	CodeType CodeType `json:"code_type"`

	Type          Type     `json:"type"`
	JudgeCategory []string `json:"judge_category"`

	Status        Status       `json:"status"`
	Score         int          `json:"score"`
	TimeMs        int          `json:"time_ms"`
	MemoryKiB     int          `json:"memory_kib"`
	Cases         []CaseResult `json:"cases,omitempty"`
	CompilerTexts []string     `json:"compiler_texts,omitempty"`
	JudgeTexts    []string     `json:"judge_texts,omitempty"`
	Progress      *float64     `json:"progress,omitempty"`

	JudgeUID   string     `json:"judge_uid,omitempty"`
	JudgeToken string     `json:"-"`
	JudgeAt    *time.Time `json:"judge_at,omitempty"`

	Hidden   bool       `json:"hidden"`
	Rejudged bool       `json:"rejudged"`
	SubmitAt *time.Time `json:"submit_at,omitempty"` // set on system-test clones
}

// NewID returns a time-ordered record id.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// IDTime returns the creation instant embedded in a UUIDv7 record id.
func IDTime(id uuid.UUID) time.Time {
	ms := binary.BigEndian.Uint64(id[:8]) >> 16
	return time.UnixMilli(int64(ms)).UTC()
}

// SubmittedAt is the instant the attempt counts as submitted: the source
// submission time for clones, otherwise the id's creation time.
func (r Record) SubmittedAt() time.Time {
	if r.SubmitAt != nil {
		return *r.SubmitAt
	}
	return IDTime(r.ID)
}

func (r Record) HasClaim() bool {
	return r.JudgeToken != ""
}

// Public strips the code so the record can be broadcast.
func (r Record) Public() Record {
	r.Code = ""
	r.JudgeToken = ""
	return r
}

// NormalizeCategories trims, de-duplicates and sorts judge category tags.
func NormalizeCategories(tags []string) []string {
	res := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		res = append(res, t)
	}
	sort.Strings(res)
	return slices.Compact(res)
}

func SameCategories(a, b []string) bool {
	return slices.Equal(NormalizeCategories(a), NormalizeCategories(b))
}

// SortNewestFirst orders records by descending id.
func SortNewestFirst(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		return bytes.Compare(recs[i].ID[:], recs[j].ID[:]) > 0
	})
}

func CompareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// ParseCategories splits a comma separated tag list; full-width commas are
// accepted as separators too.
func ParseCategories(s string) []string {
	s = strings.ReplaceAll(s, "，", ",")
	return NormalizeCategories(strings.Split(s, ","))
}
