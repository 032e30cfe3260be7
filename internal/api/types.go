package api

import "github.com/samcharles93/recurrent/internal/generate"

type ErrorBody struct {
	Error ResponseError `json:"error"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ModelInfo struct {
	Object        string `json:"object"`
	VocabSize     int    `json:"vocab_size"`
	HiddenSize    int    `json:"hidden_size"`
	ContextWindow int    `json:"context_window"`
	InputSize     int    `json:"input_size"`
	Backend       string `json:"backend"`
	ModelPath     string `json:"model_path,omitempty"`
}

type PredictRequest struct {
	Text string `json:"text"`
	Top  *int   `json:"top,omitempty"`
}

type PredictResponse struct {
	Object     string               `json:"object"`
	Candidates []generate.Candidate `json:"candidates"`
	Dropped    []string             `json:"dropped,omitempty"`
}

type GenerateRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
}

type GenerateResponse struct {
	ID        string   `json:"id"`
	Object    string   `json:"object"`
	CreatedAt int64    `json:"created_at"`
	Text      string   `json:"text"`
	Tokens    []int    `json:"tokens"`
	Dropped   []string `json:"dropped,omitempty"`
	Usage     Usage    `json:"usage"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type TrainRequest struct {
	Text         string   `json:"text"`
	Epochs       *int     `json:"epochs,omitempty"`
	LearningRate *float64 `json:"learning_rate,omitempty"`
}

type TrainResponse struct {
	ID          string    `json:"id"`
	Object      string    `json:"object"`
	CreatedAt   int64     `json:"created_at"`
	Losses      []float64 `json:"losses"`
	VocabSize   int       `json:"vocab_size"`
	AddedTokens int       `json:"added_tokens"`
	Saved       bool      `json:"saved"`
}
