package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse 定义了 MockChatModel 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// Responder 根据输入消息动态生成响应
type Responder func(ctx context.Context, input []*schema.Message) (string, error)

// ErrMockExhausted 顺序响应已用完
var ErrMockExhausted = errors.New("mock model has run out of sequential responses")

// MockChatModel 是一个用于测试的 model.ToolCallingChatModel 模拟实现，并发安全
type MockChatModel struct {
	mu sync.Mutex

	// 顺序返回的响应
	sequentialResponses []MockResponse
	responseIndex       int

	// 设置后优先使用，便于按提示词内容返回
	responder Responder

	receivedMessages [][]*schema.Message
}

// NewMockChatModelSequential 创建一个按顺序返回不同响应的 MockChatModel
func NewMockChatModelSequential(responses []MockResponse) *MockChatModel {
	return &MockChatModel{sequentialResponses: responses}
}

// NewMockChatModelWithResponder 创建一个由函数生成响应的 MockChatModel
func NewMockChatModelWithResponder(responder Responder) *MockChatModel {
	return &MockChatModel{responder: responder}
}

// Generate 模拟 LLM 的 Generate 方法
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	received := make([]*schema.Message, len(input))
	copy(received, input)
	m.receivedMessages = append(m.receivedMessages, received)

	if m.responder != nil {
		responder := m.responder
		m.mu.Unlock()
		content, err := responder(ctx, input)
		if err != nil {
			return nil, err
		}
		return schema.AssistantMessage(content, nil), nil
	}
	defer m.mu.Unlock()

	if m.responseIndex >= len(m.sequentialResponses) {
		return nil, ErrMockExhausted
	}
	resp := m.sequentialResponses[m.responseIndex]
	m.responseIndex++
	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 模拟 LLM 的 Stream 方法
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools 模拟绑定工具，返回自身
func (m *MockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// Calls 返回 Generate 被调用的次数
func (m *MockChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.receivedMessages)
}

// ReceivedMessages 返回第 i 次调用收到的消息
func (m *MockChatModel) ReceivedMessages(i int) ([]*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.receivedMessages) {
		return nil, fmt.Errorf("第 %d 次调用不存在", i)
	}
	return m.receivedMessages[i], nil
}

var _ model.ToolCallingChatModel = (*MockChatModel)(nil)
