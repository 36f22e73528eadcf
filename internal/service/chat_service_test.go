package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suvidha-go/internal/model"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/llm"
)

func newChat(set serviceSet, provider llm.Provider) ChatService {
	return NewChatService(set.conversations, set.knowledge, provider, set.functions, ChatOptions{UseKnowledgeBase: true})
}

func TestChatService_PlainReply(t *testing.T) {
	ctx := context.Background()
	set := newServiceSet(t)
	seedKnowledge(t, set.db, model.CategoryFAQ, "faq:water", "Paying water bills", "Open the bills page and choose pay.", []float64{1, 0})
	set.embedder.fallback = []float64{1, 0}
	provider := &scriptedProvider{tools: true, replies: []scriptedReply{text("You can pay from the bills page.")}}
	chat := newChat(set, provider)

	reply, err := chat.HandleMessage(ctx, "conv-1", "How do I pay my water bill?", "")
	require.NoError(t, err)
	assert.Equal(t, "You can pay from the bills page.", reply.Content)
	assert.False(t, reply.RequiresAction)
	assert.Nil(t, reply.FunctionCall)
	assert.NotEmpty(t, reply.MessageID)

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.True(t, strings.HasPrefix(req.System, "You are Suvidha AI Assistant"))
	assert.Contains(t, req.System, "Relevant Information from Knowledge Base:")
	assert.Contains(t, req.System, "1. Paying water bills\nOpen the bills page and choose pay.\n(Relevance: 100.0%)")
	assert.Len(t, req.Tools, len(AllFunctionNames))
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)

	msgs, err := set.conversations.ListMessages(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, reply.MessageID, msgs[1].ID)

	conv, err := set.conversations.FindByID(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, conv.IsAnonymous)
}

func TestChatService_HistoryWindow(t *testing.T) {
	ctx := context.Background()
	set := newServiceSet(t)
	provider := &scriptedProvider{}
	for i := 0; i < 3; i++ {
		provider.replies = append(provider.replies, text("ok"))
	}
	chat := NewChatService(set.conversations, set.knowledge, provider, set.functions, ChatOptions{HistoryWindow: 4})

	for _, msg := range []string{"first", "second", "third"} {
		_, err := chat.HandleMessage(ctx, "conv-window", msg, "")
		require.NoError(t, err)
	}

	last := provider.requests[2]
	require.Len(t, last.Messages, 4)
	assert.Equal(t, llm.RoleAssistant, last.Messages[0].Role)
	assert.Equal(t, "second", last.Messages[1].Content)
	assert.Equal(t, "third", last.Messages[3].Content)
	assert.Empty(t, last.Tools)
}

func TestChatService_HistoryIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	set := newServiceSet(t)
	provider := &scriptedProvider{replies: []scriptedReply{text("first answer"), text("second answer"), failure()}}
	chat := newChat(set, provider)

	_, err := chat.HandleMessage(ctx, "conv-log", "first question", "")
	require.NoError(t, err)
	before, err := set.conversations.ListMessages(ctx, "conv-log")
	require.NoError(t, err)
	require.Len(t, before, 2)

	for i, question := range []string{"second question", "third question"} {
		_, err := chat.HandleMessage(ctx, "conv-log", question, "")
		require.NoError(t, err)

		after, err := set.conversations.ListMessages(ctx, "conv-log")
		require.NoError(t, err)
		require.Len(t, after, 4+2*i)
		for j, msg := range before {
			assert.Equal(t, msg.ID, after[j].ID)
			assert.Equal(t, msg.Seq, after[j].Seq)
			assert.Equal(t, msg.Role, after[j].Role)
			assert.Equal(t, msg.Content, after[j].Content)
		}
		assert.Equal(t, question, after[len(before)].Content)
		before = after
	}
	assert.Equal(t, "first answer", before[1].Content)
	assert.Equal(t, "second answer", before[3].Content)
}

func TestChatService_FunctionCall(t *testing.T) {
	ctx := context.Background()

	t.Run("data result is fed back for a second pass", func(t *testing.T) {
		set := newServiceSet(t)
		citizen := seedCitizen(t, set.db, "9600000001")
		provider := &scriptedProvider{tools: true, replies: []scriptedReply{
			toolCall(string(FnGetUserBills), `{"isPaid":false}`),
			text("You have two unpaid water bills."),
		}}
		chat := newChat(set, provider)

		reply, err := chat.HandleMessage(ctx, "conv-bills", "Show my unpaid bills", citizen.citizen.ID)
		require.NoError(t, err)
		assert.Equal(t, "You have two unpaid water bills.", reply.Content)
		require.NotNil(t, reply.FunctionCall)
		assert.Equal(t, string(FnGetUserBills), reply.FunctionCall.Name)
		assert.False(t, reply.RequiresAction)

		require.Len(t, provider.requests, 2)
		exchange := provider.requests[1].Exchange
		require.NotNil(t, exchange)
		assert.Equal(t, "call-1", exchange.Call.ID)
		assert.Contains(t, exchange.Result, `"totalUnpaid":2`)

		msgs, err := set.conversations.ListMessages(ctx, "conv-bills")
		require.NoError(t, err)
		var meta model.MessageMetadata
		require.NoError(t, json.Unmarshal(msgs[1].Metadata, &meta))
		require.NotNil(t, meta.FunctionCall)
		assert.Equal(t, string(FnGetUserBills), meta.FunctionCall.Name)
	})

	t.Run("navigation short-circuits the second pass", func(t *testing.T) {
		set := newServiceSet(t)
		provider := &scriptedProvider{tools: true, replies: []scriptedReply{
			toolCall(string(FnNavigateToPage), `{"page":"grievances"}`),
		}}
		chat := newChat(set, provider)

		reply, err := chat.HandleMessage(ctx, "conv-nav", "Take me to grievances", "")
		require.NoError(t, err)
		assert.Equal(t, "I'll help you navigate to grievances.", reply.Content)
		assert.True(t, reply.RequiresAction)
		require.Len(t, provider.requests, 1)
		nav, ok := reply.FunctionCall.Result.(*Navigation)
		require.True(t, ok)
		assert.Equal(t, "grievances", nav.Page)
	})

	t.Run("anonymous callers are sent to login", func(t *testing.T) {
		set := newServiceSet(t)
		provider := &scriptedProvider{tools: true, replies: []scriptedReply{
			toolCall(string(FnPayBill), `{"billId":"b-1"}`),
		}}
		chat := newChat(set, provider)

		reply, err := chat.HandleMessage(ctx, "conv-anon", "Pay my bill", "")
		require.NoError(t, err)
		assert.Equal(t, "I'll help you navigate to login.", reply.Content)
		assert.True(t, reply.RequiresAction)
	})

	t.Run("function errors are reported to the model", func(t *testing.T) {
		set := newServiceSet(t)
		citizen := seedCitizen(t, set.db, "9600000002")
		provider := &scriptedProvider{tools: true, replies: []scriptedReply{
			toolCall(string(FnPayBill), `{"billId":"does-not-exist"}`),
			text("That bill could not be found."),
		}}
		chat := newChat(set, provider)

		reply, err := chat.HandleMessage(ctx, "conv-err", "Pay bill does-not-exist", citizen.citizen.ID)
		require.NoError(t, err)
		assert.Equal(t, "That bill could not be found.", reply.Content)
		assert.JSONEq(t, `{"error":"Bill not found, already paid, or not accessible."}`, provider.requests[1].Exchange.Result)
	})

	t.Run("a failed second pass still answers", func(t *testing.T) {
		set := newServiceSet(t)
		provider := &scriptedProvider{tools: true, replies: []scriptedReply{
			toolCall(string(FnGetSchemeDetails), `{"schemeName":"anything"}`),
			failure(),
		}}
		chat := newChat(set, provider)

		reply, err := chat.HandleMessage(ctx, "conv-second", "Tell me about schemes", "")
		require.NoError(t, err)
		assert.Equal(t, "I've retrieved the information.", reply.Content)
		require.NotNil(t, reply.FunctionCall)
	})
}

func TestChatService_ProviderFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to knowledge base results", func(t *testing.T) {
		set := newServiceSet(t)
		for _, key := range []string{"a", "b", "c", "d"} {
			seedKnowledge(t, set.db, model.CategoryFAQ, "faq:"+key, "FAQ "+key, "Answer "+key, []float64{1, 0})
		}
		set.embedder.fallback = []float64{1, 0}
		chat := newChat(set, &scriptedProvider{replies: []scriptedReply{failure()}})

		reply, err := chat.HandleMessage(ctx, "conv-down", "help", "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(reply.Content, "Here's relevant information from the knowledge base:\n\n1. FAQ "))
		assert.Equal(t, 3, strings.Count(reply.Content, "Answer "))
		assert.NotContains(t, reply.Content, "503")
	})

	t.Run("generic apology when nothing is available", func(t *testing.T) {
		set := newServiceSet(t)
		chat := newChat(set, &scriptedProvider{replies: []scriptedReply{failure()}})

		reply, err := chat.HandleMessage(ctx, "conv-empty", "help", "")
		require.NoError(t, err)
		assert.Equal(t, "I'm having trouble reaching the AI model right now. Please try again in a moment.", reply.Content)
	})

	t.Run("grounding failure does not block the reply", func(t *testing.T) {
		set := newServiceSet(t)
		seedKnowledge(t, set.db, model.CategoryFAQ, "faq:a", "FAQ", "Answer", []float64{1, 0})
		set.embedder.err = apperr.New(apperr.CodeEmbeddingRequestFailed, "down")
		provider := &scriptedProvider{replies: []scriptedReply{text("hello")}}
		chat := newChat(set, provider)

		reply, err := chat.HandleMessage(ctx, "conv-kb-down", "hi", "")
		require.NoError(t, err)
		assert.Equal(t, "hello", reply.Content)
		assert.NotContains(t, provider.requests[0].System, "Relevant Information")
	})
}

func TestChatService_Ownership(t *testing.T) {
	ctx := context.Background()
	set := newServiceSet(t)
	owner := seedCitizen(t, set.db, "9700000001")
	intruder := seedCitizen(t, set.db, "9700000002")
	provider := &scriptedProvider{replies: []scriptedReply{text("hi"), text("hi")}}
	chat := newChat(set, provider)

	_, err := chat.HandleMessage(ctx, "conv-owned", "hello", owner.citizen.ID)
	require.NoError(t, err)

	_, err = chat.HandleMessage(ctx, "conv-owned", "let me in", intruder.citizen.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = chat.HandleMessage(ctx, "conv-owned", "let me in", "")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = chat.HandleMessage(ctx, "conv-owned", "  ", owner.citizen.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
