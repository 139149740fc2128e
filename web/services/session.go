package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sheet-agent/dataset"
	"sheet-agent/envelope"
	"sheet-agent/web/format"
)

// State is the position of a session in the upload/ask flow.
type State int

const (
	StateNoFile State = iota
	StateSheetPending
	StateFileLoaded
	StateQuestionPending
	StateAnswered
)

func (s State) String() string {
	switch s {
	case StateNoFile:
		return "no_file"
	case StateSheetPending:
		return "sheet_pending"
	case StateFileLoaded:
		return "file_loaded"
	case StateQuestionPending:
		return "question_pending"
	case StateAnswered:
		return "answered"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrSubmitNotReady is returned by Submit when no dataset is loaded or
	// the question is blank. The agent is not called.
	ErrSubmitNotReady = errors.New("upload a file and enter a question first")

	// ErrNoSheetPending is returned by SelectSheet outside SheetPending.
	ErrNoSheetPending = errors.New("no workbook is waiting for a sheet selection")
)

// Answerer turns a question about a dataset into envelope text.
type Answerer interface {
	Answer(ctx context.Context, sessionID string, ds *dataset.Dataset, question string) (string, error)
}

// Outcome is the last submit of a session: the raw model text and either
// its rendering or the error that stopped it.
type Outcome struct {
	Raw    string
	Result *format.Result
	Err    error
}

// Session is one user's upload/ask state. All methods are safe for
// concurrent use and serialize on the session mutex, so a long Submit
// blocks the session's other requests.
type Session struct {
	ID        string
	Workspace string
	CreatedAt time.Time

	// lastActive is unix nanoseconds, readable while a Submit holds mu.
	lastActive atomic.Int64

	mu       sync.Mutex
	state    State
	fileName string
	dataset  *dataset.Dataset
	workbook *dataset.Workbook
	sheets   []string
	question string
	outcome  *Outcome
}

// NewSession returns a session in StateNoFile.
func NewSession(id, workspace string) *Session {
	s := &Session{ID: id, Workspace: workspace, CreatedAt: time.Now()}
	s.lastActive.Store(s.CreatedAt.UnixNano())
	return s
}

// View is a consistent copy of session state for rendering.
type View struct {
	ID       string
	State    State
	FileName string
	Dataset  *dataset.Dataset
	Sheets   []string
	Question string
	Outcome  *Outcome
}

// CanSubmit mirrors the Submit gate.
func (v View) CanSubmit() bool {
	return v.Dataset != nil && strings.TrimSpace(v.Question) != ""
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:       s.ID,
		State:    s.state,
		FileName: s.fileName,
		Dataset:  s.dataset,
		Sheets:   append([]string(nil), s.sheets...),
		Question: s.question,
		Outcome:  s.outcome,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Touch records activity for idle cleanup.
func (s *Session) Touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Upload replaces whatever the session held with the file in r. CSV loads
// immediately; a workbook with several sheets waits in StateSheetPending.
// On failure the session is left in StateNoFile.
func (s *Session) Upload(kind dataset.Kind, name string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	s.fileName = name

	switch kind {
	case dataset.KindCSV:
		ds, err := dataset.LoadCSV(r, name)
		if err != nil {
			s.fileName = ""
			return err
		}
		s.setDatasetLocked(ds)
		return nil

	case dataset.KindExcel:
		wb, err := dataset.OpenWorkbook(r, name)
		if err != nil {
			s.fileName = ""
			return err
		}
		sheets := wb.Sheets()
		switch len(sheets) {
		case 0:
			wb.Close()
			s.fileName = ""
			return dataset.ErrEmptyFile
		case 1:
			defer wb.Close()
			ds, err := wb.Load(sheets[0])
			if err != nil {
				s.fileName = ""
				return err
			}
			s.setDatasetLocked(ds)
			return nil
		}
		s.workbook = wb
		s.sheets = sheets
		s.state = StateSheetPending
		return nil
	}

	s.fileName = ""
	return fmt.Errorf("%w: %q", dataset.ErrUnsupportedKind, kind)
}

// SelectSheet loads one sheet of the pending workbook. An unknown sheet
// keeps the workbook pending; any other load failure drops to StateNoFile.
func (s *Session) SelectSheet(sheet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSheetPending || s.workbook == nil {
		return ErrNoSheetPending
	}
	ds, err := s.workbook.Load(sheet)
	if errors.Is(err, dataset.ErrSheetNotFound) {
		return err
	}
	s.workbook.Close()
	s.workbook = nil
	s.sheets = nil
	if err != nil {
		s.clearLocked()
		return err
	}
	s.setDatasetLocked(ds)
	return nil
}

// SetQuestion stores the question text. With a dataset loaded a non-blank
// question moves the session to StateQuestionPending; a blank one leaves the
// state and the last outcome alone.
func (s *Session) SetQuestion(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.question = q
	if strings.TrimSpace(q) == "" {
		return
	}
	if s.dataset != nil && s.state != StateSheetPending {
		s.state = StateQuestionPending
		s.outcome = nil
	}
}

// Submit asks the agent the pending question and renders the reply. It is
// inert, returning ErrSubmitNotReady, unless a dataset is loaded and the
// question is non-blank. Agent failures leave the session in
// StateQuestionPending; decode and render failures land in StateAnswered
// with the error recorded in the outcome.
func (s *Session) Submit(ctx context.Context, agent Answerer) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataset == nil || strings.TrimSpace(s.question) == "" {
		return nil, ErrSubmitNotReady
	}
	s.state = StateQuestionPending

	raw, err := agent.Answer(ctx, s.ID, s.dataset, s.question)
	if err != nil {
		s.outcome = &Outcome{Err: err}
		return s.outcome, err
	}

	out := &Outcome{Raw: raw}
	env, err := envelope.Decode(raw)
	if err == nil {
		out.Result, err = format.Render(env)
	}
	out.Err = err
	s.outcome = out
	s.state = StateAnswered
	return out, err
}

// Reset drops everything and returns to StateNoFile.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Close releases an open workbook.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workbook != nil {
		s.workbook.Close()
		s.workbook = nil
	}
}

func (s *Session) setDatasetLocked(ds *dataset.Dataset) {
	s.dataset = ds
	s.state = StateFileLoaded
}

func (s *Session) clearLocked() {
	if s.workbook != nil {
		s.workbook.Close()
	}
	s.workbook = nil
	s.sheets = nil
	s.dataset = nil
	s.fileName = ""
	s.question = ""
	s.outcome = nil
	s.state = StateNoFile
}
