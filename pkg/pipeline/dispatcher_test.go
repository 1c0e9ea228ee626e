package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/bus"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/inbox"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform"
	providertypes "github.com/DiscipleTools/agent-ai-sub003/pkg/provider/types"
)

// deliveryPlatform records outgoing sends and the credentials used.
type deliveryPlatform struct {
	sendErr error

	sentTexts []string
	sentCreds []platform.Credential
}

func (p *deliveryPlatform) FetchHistory(context.Context, string, string, platform.Credential) ([]platform.Turn, error) {
	return nil, nil
}

func (p *deliveryPlatform) Send(_ context.Context, _ string, _ string, text string, cred platform.Credential) error {
	if p.sendErr != nil {
		return p.sendErr
	}

	p.sentTexts = append(p.sentTexts, text)
	p.sentCreds = append(p.sentCreds, cred)
	return nil
}

func newTestDispatcher(client *deliveryPlatform, generate generatorFunc) *Dispatcher {
	builder := NewContextBuilder(client, 0, nil)
	invoker := NewInvoker(generate, nil)

	return NewDispatcher(invoker, builder, client, nil)
}

func responseInbox(responseAgent *inbox.Agent) *inbox.Inbox {
	in := &inbox.Inbox{
		ID:         "inbox-1",
		AccountID:  "acct-1",
		Active:     true,
		Credential: platform.Credential{Token: "inbox-token"},
	}
	if responseAgent != nil {
		in.ResponseAgent = &inbox.ResponseAssignment{Agent: responseAgent}
	}

	return in
}

func TestDispatcherNoResponseAgent(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatcher(&deliveryPlatform{}, func(context.Context, string, providertypes.Conversation, providertypes.Options) (string, error) {
		t.Fatal("generator must not be called without a response agent")
		return "", nil
	})

	if result := dispatcher.Run(context.Background(), responseInbox(nil), bus.InboundMessage{}); result != nil {
		t.Fatalf("result = %+v, want nil", result)
	}
}

func TestDispatcherSendsGeneratedReply(t *testing.T) {
	t.Parallel()

	client := &deliveryPlatform{}
	dispatcher := newTestDispatcher(client, func(context.Context, string, providertypes.Conversation, providertypes.Options) (string, error) {
		return "Your refund is on its way.", nil
	})

	in := responseInbox(&inbox.Agent{ID: "resp-1", Name: "Responder"})
	result := dispatcher.Run(context.Background(), in, bus.InboundMessage{AccountID: "acct-1", ConversationID: "conv-1"})

	if result == nil || !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if !result.MessageSent {
		t.Fatal("MessageSent = false, want true")
	}
	if len(client.sentTexts) != 1 || client.sentTexts[0] != "Your refund is on its way." {
		t.Fatalf("sentTexts = %v", client.sentTexts)
	}
}

func TestDispatcherSkipsSendOnGenerationFailure(t *testing.T) {
	t.Parallel()

	client := &deliveryPlatform{}
	dispatcher := newTestDispatcher(client, func(context.Context, string, providertypes.Conversation, providertypes.Options) (string, error) {
		return "", errors.New("model overloaded")
	})

	in := responseInbox(&inbox.Agent{ID: "resp-1"})
	result := dispatcher.Run(context.Background(), in, bus.InboundMessage{ConversationID: "conv-1"})

	if result == nil || result.Success {
		t.Fatalf("result = %+v, want recorded failure", result)
	}
	if result.MessageSent {
		t.Fatal("MessageSent = true after generation failure")
	}
	if len(client.sentTexts) != 0 {
		t.Fatalf("sentTexts = %v, want no delivery", client.sentTexts)
	}
}

func TestDispatcherSendFailureKeepsGenerationSuccess(t *testing.T) {
	t.Parallel()

	client := &deliveryPlatform{sendErr: errors.New("platform rejected message")}
	dispatcher := newTestDispatcher(client, func(context.Context, string, providertypes.Conversation, providertypes.Options) (string, error) {
		return "reply", nil
	})

	in := responseInbox(&inbox.Agent{ID: "resp-1"})
	result := dispatcher.Run(context.Background(), in, bus.InboundMessage{ConversationID: "conv-1"})

	if result == nil || !result.Success {
		t.Fatalf("result = %+v, want generation success preserved", result)
	}
	if result.MessageSent {
		t.Fatal("MessageSent = true, want false on delivery failure")
	}
	if result.SendError != "platform rejected message" {
		t.Fatalf("SendError = %q", result.SendError)
	}
}

func TestDispatcherUsesAgentCredentialWhenPresent(t *testing.T) {
	t.Parallel()

	client := &deliveryPlatform{}
	dispatcher := newTestDispatcher(client, func(context.Context, string, providertypes.Conversation, providertypes.Options) (string, error) {
		return "reply", nil
	})

	agent := &inbox.Agent{
		ID:         "resp-1",
		Credential: &platform.Credential{Token: "agent-token"},
	}
	dispatcher.Run(context.Background(), responseInbox(agent), bus.InboundMessage{ConversationID: "conv-1"})

	if len(client.sentCreds) != 1 || client.sentCreds[0].Token != "agent-token" {
		t.Fatalf("sentCreds = %+v, want agent credential", client.sentCreds)
	}
}

func TestDispatcherFallsBackToInboxCredential(t *testing.T) {
	t.Parallel()

	client := &deliveryPlatform{}
	dispatcher := newTestDispatcher(client, func(context.Context, string, providertypes.Conversation, providertypes.Options) (string, error) {
		return "reply", nil
	})

	agent := &inbox.Agent{
		ID:         "resp-1",
		Credential: &platform.Credential{},
	}
	dispatcher.Run(context.Background(), responseInbox(agent), bus.InboundMessage{ConversationID: "conv-1"})

	if len(client.sentCreds) != 1 || client.sentCreds[0].Token != "inbox-token" {
		t.Fatalf("sentCreds = %+v, want inbox credential for zero agent credential", client.sentCreds)
	}
}
