// Package notes drafts release announcements from the newest changelog
// section via an LLM.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/relix/internal/changelog"
	"github.com/tyemirov/utils/llm"
)

const (
	defaultMaxTokens        = 512
	systemMessageRole       = "system"
	userMessageRole         = "user"
	unknownProjectFallback  = "this project"
	unknownVersionFallback  = "the upcoming release"
	emptySectionFallback    = "No changelog entries available."
	requestDraftedLogField  = "max_tokens"
	notesDraftedMessageText = "Release notes drafted"
)

// Options configure release notes drafting.
type Options struct {
	ChangelogPath string
	Version       string
	ProjectName   string
	MaxTokens     int
	Temperature   *float64
}

// Result contains the drafted notes and the prompt that produced them.
type Result struct {
	Notes   string
	Request llm.ChatRequest
}

// Drafter turns the newest changelog section into a release announcement.
type Drafter struct {
	Changelog *changelog.Generator
	Client    llm.ChatClient
	Logger    *zap.Logger
}

// ErrEmptyDraft indicates the LLM returned no usable text.
var ErrEmptyDraft = errors.New("llm returned empty release notes")

// Draft builds the prompt and returns the LLM response.
func (drafter Drafter) Draft(ctx context.Context, options Options) (Result, error) {
	request, requestError := drafter.BuildRequest(options)
	if requestError != nil {
		return Result{}, requestError
	}

	response, chatError := drafter.Client.Chat(ctx, request)
	if chatError != nil {
		return Result{}, fmt.Errorf("release notes drafting.llm: %w", chatError)
	}

	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return Result{}, ErrEmptyDraft
	}

	if drafter.Logger != nil {
		drafter.Logger.Info(notesDraftedMessageText, zap.Int(requestDraftedLogField, request.MaxTokens))
	}
	return Result{Notes: trimmed, Request: request}, nil
}

// BuildRequest prepares the chat request without invoking the LLM.
func (drafter Drafter) BuildRequest(options Options) (llm.ChatRequest, error) {
	if drafter.Changelog == nil {
		return llm.ChatRequest{}, errors.New("changelog generator is not configured")
	}
	if drafter.Client == nil {
		return llm.ChatRequest{}, errors.New("llm client is not configured")
	}
	changelogPath := strings.TrimSpace(options.ChangelogPath)
	if changelogPath == "" {
		return llm.ChatRequest{}, errors.New("changelog path is required")
	}

	latestSection, sectionError := drafter.Changelog.LatestFromFile(changelogPath, true)
	if sectionError != nil {
		return llm.ChatRequest{}, sectionError
	}

	systemMessage := llm.Message{
		Role: systemMessageRole,
		Content: strings.Join([]string{
			"You are a release manager writing user-facing release notes.",
			"Summarize the changelog section as a short announcement: one opening sentence, then grouped bullet points for highlights.",
			"Keep the tone factual and skip internal chores unless they affect users.",
			"Do not include code fences, markdown headings, or the raw changelog.",
		}, " "),
	}

	userMessage := llm.Message{
		Role: userMessageRole,
		Content: fmt.Sprintf(
			"Project: %s\nVersion: %s\n\nChangelog section:\n%s\n\nReturn only the release notes.",
			fallbackText(options.ProjectName, unknownProjectFallback),
			fallbackText(options.Version, unknownVersionFallback),
			fallbackText(latestSection, emptySectionFallback),
		),
	}

	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return llm.ChatRequest{
		Messages:    []llm.Message{systemMessage, userMessage},
		MaxTokens:   maxTokens,
		Temperature: options.Temperature,
	}, nil
}

func fallbackText(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
