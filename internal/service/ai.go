package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"what-to-do/internal/config"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

// Summarizer turns a digest into prose. Errors are returned as they come;
// there is no retry and no fallback text.
type Summarizer interface {
	Summarize(ctx context.Context, system, text string) (string, error)
	StreamSummarize(ctx context.Context, system, text string, flush func(string)) (string, error)
}

// AIService talks to an OpenAI-compatible chat completions endpoint and,
// when MOI is configured, to its data-asking service.
type AIService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	raw     *sdk.RawClient
	moi     config.MOIConfig
}

func NewAIService(cfg config.LLMConfig, raw *sdk.RawClient, moi config.MOIConfig) *AIService {
	return &AIService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  newLLMClient(),
		raw:     raw,
		moi:     moi,
	}
}

// newLLMClient bounds connecting and waiting for the response headers but
// not reading the body; a streamed answer runs until ctx ends.
func newLLMClient() *http.Client {
	return &http.Client{Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 2 * time.Minute,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
	}}
}

func (s *AIService) doChat(ctx context.Context, system, user string, stream bool, flush func(string)) (string, error) {
	body := map[string]interface{}{
		"model":  s.model,
		"stream": stream,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, data)
	}

	if !stream {
		data, _ := io.ReadAll(resp.Body)
		var result struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(data, &result); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(result.Choices) == 0 {
			return "", fmt.Errorf("empty choices")
		}
		return result.Choices[0].Message.Content, nil
	}

	scanner := bufio.NewScanner(resp.Body)
	var full strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := line[6:]
		if data == "[DONE]" {
			break
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if json.Unmarshal([]byte(data), &chunk) == nil && len(chunk.Choices) > 0 {
			token := chunk.Choices[0].Delta.Content
			if token != "" {
				full.WriteString(token)
				if flush != nil {
					flush(token)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read stream: %w", err)
	}
	return full.String(), nil
}

func (s *AIService) Summarize(ctx context.Context, system, text string) (string, error) {
	return s.doChat(ctx, system, text, false, nil)
}

func (s *AIService) StreamSummarize(ctx context.Context, system, text string, flush func(string)) (string, error) {
	return s.doChat(ctx, system, text, true, flush)
}

// AskReady reports whether questions can be routed to MOI data asking.
func (s *AIService) AskReady() bool { return s.raw != nil && s.moi.DatabaseID != 0 }

// StreamAsk answers a free-form question about uid's synced diary tables.
// Only that user's tables are handed to data asking.
// Progress notes go to think, answer text to flush.
func (s *AIService) StreamAsk(ctx context.Context, uid int, question string, flush func(string), think func(string)) error {
	if !s.AskReady() {
		flush("Data asking is not configured.")
		return nil
	}

	stream, err := s.raw.AnalyzeDataStream(ctx, &sdk.DataAnalysisRequest{
		Question: question,
		Config: &sdk.DataAnalysisConfig{
			DataSource: &sdk.DataSource{
				Type: "specified",
				Tables: &sdk.DataAskingTableConfig{
					Type: "specified", DbName: CatalogDBName, TableList: UserTables(uid),
				},
			},
			DataScope: &sdk.DataScope{Type: "all"},
		},
	})
	if err != nil {
		return fmt.Errorf("data asking: %w", err)
	}
	defer stream.Close()

	for {
		event, err := stream.ReadEvent()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read event: %w", err)
		}
		if event == nil {
			continue
		}

		switch event.StepType {
		case "decomposition":
			think("Analysing the question...")
		case "exploration":
			think("Looking at the diary tables...")
		case "agent_reasoning":
			if msg, ok := event.Data["message"].(string); ok {
				runes := []rune(msg)
				if len(runes) > 80 {
					msg = string(runes[:80]) + "..."
				}
				think(msg)
			}
		case "sql_generation":
			think("Writing the query...")
		case "sql_execution":
			think("Query done, preparing the answer...")
		case "insight":
			flushInsightBlocks(event.Data, flush)
		}
	}
	return nil
}

func flushInsightBlocks(data map[string]interface{}, flush func(string)) {
	blocks, ok := data["blocks"].([]interface{})
	if !ok {
		return
	}
	for _, b := range blocks {
		block, ok := b.(map[string]interface{})
		if !ok {
			continue
		}
		if text, ok := block["text"].(map[string]interface{}); ok {
			if content, ok := text["content"].(string); ok {
				flush(content)
			}
		}
	}
}
