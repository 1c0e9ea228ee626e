package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/bus"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform"
)

// historyPlatform serves scripted conversation history and records calls.
type historyPlatform struct {
	turns      []platform.Turn
	historyErr error

	fetchCalls int
}

func (p *historyPlatform) FetchHistory(_ context.Context, _ string, _ string, _ platform.Credential) ([]platform.Turn, error) {
	p.fetchCalls++
	if p.historyErr != nil {
		return nil, p.historyErr
	}

	return p.turns, nil
}

func (p *historyPlatform) Send(context.Context, string, string, string, platform.Credential) error {
	return nil
}

func TestBuildSkipsFetchWithoutConversationID(t *testing.T) {
	t.Parallel()

	client := &historyPlatform{turns: []platform.Turn{{ID: "t1", Content: "hi"}}}
	builder := NewContextBuilder(client, 0, nil)

	invocation := builder.Build(context.Background(), bus.InboundMessage{Content: "hello"}, platform.Credential{})

	if client.fetchCalls != 0 {
		t.Fatalf("fetchCalls = %d, want 0", client.fetchCalls)
	}
	if invocation.History != nil {
		t.Fatalf("History = %v, want nil", invocation.History)
	}
}

func TestBuildDegradesOnFetchFailure(t *testing.T) {
	t.Parallel()

	client := &historyPlatform{historyErr: errors.New("platform down")}
	builder := NewContextBuilder(client, 0, nil)

	msg := bus.InboundMessage{ConversationID: "conv-1", Content: "hello"}
	invocation := builder.Build(context.Background(), msg, platform.Credential{})

	if invocation.History != nil {
		t.Fatalf("History = %v, want nil after fetch failure", invocation.History)
	}
	if invocation.Message.Content != "hello" {
		t.Fatalf("message not carried: %+v", invocation.Message)
	}
}

func TestBuildExcludesCurrentMessageByID(t *testing.T) {
	t.Parallel()

	client := &historyPlatform{turns: []platform.Turn{
		{ID: "t1", Content: "earlier question", Incoming: true},
		{ID: "t2", Content: "earlier answer"},
		{ID: "t3", Content: "where is my refund?", Incoming: true},
	}}
	builder := NewContextBuilder(client, 0, nil)

	msg := bus.InboundMessage{ConversationID: "conv-1", MessageID: "t3", Content: "where is my refund?"}
	invocation := builder.Build(context.Background(), msg, platform.Credential{})

	if len(invocation.History) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(invocation.History))
	}
	for _, turn := range invocation.History {
		if turn.ID == "t3" {
			t.Fatal("current message leaked into history")
		}
	}
}

func TestBuildExcludesCurrentMessageByContent(t *testing.T) {
	t.Parallel()

	client := &historyPlatform{turns: []platform.Turn{
		{ID: "t1", Content: "earlier question", Incoming: true},
		{ID: "t9", Content: "where is my refund?", Incoming: true},
	}}
	builder := NewContextBuilder(client, 0, nil)

	// No message id: the duplicate is matched by exact content instead.
	msg := bus.InboundMessage{ConversationID: "conv-1", Content: "where is my refund?"}
	invocation := builder.Build(context.Background(), msg, platform.Credential{})

	if len(invocation.History) != 1 || invocation.History[0].ID != "t1" {
		t.Fatalf("History = %+v, want only t1", invocation.History)
	}
}

func TestBuildCapsHistoryKeepingMostRecent(t *testing.T) {
	t.Parallel()

	turns := make([]platform.Turn, 0, 10)
	for i := 0; i < 10; i++ {
		turns = append(turns, platform.Turn{ID: fmt.Sprintf("t%d", i), Content: fmt.Sprintf("turn %d", i)})
	}
	client := &historyPlatform{turns: turns}
	builder := NewContextBuilder(client, 3, nil)

	msg := bus.InboundMessage{ConversationID: "conv-1", Content: "new message"}
	invocation := builder.Build(context.Background(), msg, platform.Credential{})

	if len(invocation.History) != 3 {
		t.Fatalf("len(History) = %d, want 3", len(invocation.History))
	}
	if invocation.History[0].ID != "t7" || invocation.History[2].ID != "t9" {
		t.Fatalf("History = %+v, want the most recent turns", invocation.History)
	}
}
