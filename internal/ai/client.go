package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *Client) SetModel(model string) {
	c.model = model
}

type Intent struct {
	Action      string            `json:"action"`
	Parameters  map[string]string `json:"parameters"`
	Confidence  float64           `json:"confidence"`
	AIMessage   string            `json:"ai_message"`
	RawResponse string            `json:"-"`
}

const systemPromptTemplate = `你是 PawLine 的智慧助理，負責解析用戶的自然語言輸入並轉換為結構化的意圖。PawLine 是一個寵物照護機器人，幫助飼主管理貓咪的餵藥排程與日常記錄。

當前時間: %s

可用的 action:
- create_cat: 新增貓咪
- create_medicine: 新增藥品
- create_schedule: 建立餵藥排程
- mark_given: 記錄已給藥
- log_weight: 記錄體重
- log_food: 記錄進食
- create_diary: 寫日記
- list_schedules: 列出餵藥排程
- unknown: 無法識別

根據 action 類型，parameters 可能包含：
- cat_name: 貓咪名字
- breed: 品種
- medicine_name: 藥品名稱
- dosage: 劑量 (如「半顆」、「2.5ml」)
- instructions: 注意事項
- time: 餵藥時間 (格式: HH:MM)
- weekdays: 星期幾 (如「一三五」、「每天」)
- weight: 體重公斤數
- food: 食物內容
- content: 日記內容

重要規則：
1. 當用戶使用相對時間（如「明天早上」、「每天晚上八點」），請根據當前時間換算成具體的 HH:MM 或 YYYY-MM-DD 格式。
2. 用戶提到「每天」時 weekdays 輸出「每天」；提到特定星期時輸出中文數字，如「一三五」。
3. 無法識別或純閒聊時 action = unknown，並在 ai_message 給出友善回覆。
4. ai_message 一律使用繁體中文。`

func getSystemPrompt() string {
	now := time.Now()
	return fmt.Sprintf(systemPromptTemplate, now.Format("2006-01-02 15:04 (Monday)"))
}

// JSON Schema for structured output
var intentSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"action": {
			"type": "string",
			"enum": ["create_cat", "create_medicine", "create_schedule", "mark_given", "log_weight", "log_food", "create_diary", "list_schedules", "unknown"],
			"description": "The action to perform"
		},
		"parameters": {
			"type": "object",
			"additionalProperties": {
				"type": "string"
			},
			"description": "Parameters for the action"
		},
		"confidence": {
			"type": "number",
			"minimum": 0,
			"maximum": 1,
			"description": "Confidence score between 0 and 1"
		},
		"ai_message": {
			"type": "string",
			"description": "Friendly message to show user (for confirming actions or casual chat)"
		}
	},
	"required": ["action", "confidence"],
	"additionalProperties": false
}`)

func (c *Client) ParseIntent(ctx context.Context, userMessage string) (*Intent, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: getSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userMessage,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "intent",
				Schema: intentSchema,
				Strict: true,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}

	content := resp.Choices[0].Message.Content
	intent := &Intent{RawResponse: content}

	if err := json.Unmarshal([]byte(content), intent); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	return intent, nil
}
