package quiz

import (
	"time"

	"github.com/conorfennell/molcards/internal/domain"
)

// Result is the graded outcome of a judge-style submission.
type Result struct {
	Correct bool
	Fields  []FieldResult
}

// Session is the state of one quiz run. Methods take a Session by value and
// return the updated copy; nothing is shared between sessions.
type Session struct {
	Mode      Mode
	Style     Style
	Questions []Question
	Index     int
	Score     int
	Answered  int
	Revealed  bool
	Last      *Result // result for the current question, if submitted
	StartedAt time.Time
}

// NewSession starts a session over the given questions.
func NewSession(questions []Question, mode Mode, style Style, now time.Time) Session {
	return Session{
		Mode:      mode,
		Style:     style,
		Questions: questions,
		StartedAt: now,
	}
}

// Current returns the question being asked.
func (s Session) Current() (Question, bool) {
	if s.Done() {
		return Question{}, false
	}
	return s.Questions[s.Index], true
}

// Done reports whether every question has been passed.
func (s Session) Done() bool {
	return s.Index >= len(s.Questions)
}

// Position returns the 1-based number of the current question and the total.
func (s Session) Position() (int, int) {
	return s.Index + 1, len(s.Questions)
}

// Reveal marks the current answer as shown.
func (s Session) Reveal() Session {
	if !s.Done() {
		s.Revealed = true
	}
	return s
}

// Submit grades answers for the current question. A question is scored once;
// a repeated submission returns the first result unchanged.
func (s Session) Submit(answers map[domain.Field]string) (Session, Result) {
	q, ok := s.Current()
	if !ok {
		return s, Result{}
	}
	if s.Last != nil {
		return s, *s.Last
	}

	fields := q.Check(answers)
	res := Result{Correct: allOK(fields), Fields: fields}
	s.Answered++
	if res.Correct {
		s.Score++
	}
	// Failed answers reveal the reference values.
	s.Revealed = !res.Correct
	s.Last = &res
	return s, res
}

// Next moves to the following question.
func (s Session) Next() Session {
	if !s.Done() {
		s.Index++
	}
	s.Revealed = false
	s.Last = nil
	return s
}

// Elapsed is the time since the session started, truncated to the second.
func (s Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt).Truncate(time.Second)
}
