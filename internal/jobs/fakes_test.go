package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/crm"
	"github.com/jonathan/gtm-agent/internal/notify"
)

type fakeCRM struct {
	mu          sync.Mutex
	contacts    []crm.Contact
	deals       []crm.Deal
	failTasks   bool
	panicOnList bool
	tasks       []crm.TaskInput
	scoreWrites int
}

func (f *fakeCRM) ListContacts(_ context.Context, limit int, _ []string) []crm.Contact {
	if f.panicOnList {
		panic("crm exploded")
	}
	return firstN(f.contacts, limit)
}

func (f *fakeCRM) ListDeals(_ context.Context, limit int) []crm.Deal {
	if f.panicOnList {
		panic("crm exploded")
	}
	return firstN(f.deals, limit)
}

func (f *fakeCRM) CreateTask(_ context.Context, in crm.TaskInput) *crm.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTasks {
		return nil
	}
	f.tasks = append(f.tasks, in)
	return &crm.Task{ID: "task-" + in.DealID}
}

func (f *fakeCRM) UpdateContactScore(context.Context, string, float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreWrites++
	return true
}

type summaryCall struct {
	Instruction string
	Data        any
}

type fakeSummarizer struct {
	mu    sync.Mutex
	reply string
	calls []summaryCall
}

func (f *fakeSummarizer) Summarize(_ context.Context, instruction string, data any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, summaryCall{Instruction: instruction, Data: data})
	return f.reply
}

type sentMessage struct {
	Text   string
	Blocks []notify.Block
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeNotifier) Notify(_ context.Context, text string, blocks []notify.Block) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Text: text, Blocks: blocks})
	return true
}

type harness struct {
	crm        *fakeCRM
	summarizer *fakeSummarizer
	notifier   *fakeNotifier
	store      *activity.Store
	runner     *Runner
}

func newHarness() *harness {
	h := &harness{
		crm:        &fakeCRM{},
		summarizer: &fakeSummarizer{reply: "Focus on the biggest deals."},
		notifier:   &fakeNotifier{},
		store:      activity.NewStore(100).WithClock(func() time.Time { return testNow }),
	}
	h.runner = NewRunner(Deps{
		CRM:        h.crm,
		Summarizer: h.summarizer,
		Notifier:   h.notifier,
		Recorder:   h.store,
		Now:        func() time.Time { return testNow },
	})
	return h
}

func (h *harness) categories() []activity.Category {
	_, entries := h.store.Snapshot(0)
	out := make([]activity.Category, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i].Category)
	}
	return out
}
