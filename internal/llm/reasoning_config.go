package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ReasoningModelType identifies a model family's extended-thinking behavior.
type ReasoningModelType string

const (
	ReasoningModelGeneric       ReasoningModelType = "generic"
	ReasoningModelOpenAI_O1     ReasoningModelType = "openai_o1"
	ReasoningModelOpenAI_O3     ReasoningModelType = "openai_o3"
	ReasoningModelOpenAI_O4     ReasoningModelType = "openai_o4"
	ReasoningModelClaude_Opus   ReasoningModelType = "claude_opus"
	ReasoningModelClaude_Sonnet ReasoningModelType = "claude_sonnet"
	ReasoningModelDeepSeek_R1   ReasoningModelType = "deepseek_r1"
	ReasoningModelQwQ_32B       ReasoningModelType = "qwq_32b"
)

// ReasoningEffortLevel bounds how much thinking a request asks a model for.
type ReasoningEffortLevel string

const (
	ReasoningEffortLow    ReasoningEffortLevel = "low"
	ReasoningEffortMedium ReasoningEffortLevel = "medium"
	ReasoningEffortHigh   ReasoningEffortLevel = "high"
)

// ReasoningConfig controls extended-thinking behavior for a single request.
type ReasoningConfig struct {
	Enabled         bool
	ExtractThinking bool
	HideFromUser    bool
	ThinkingTags    string
	ThinkingBudget  int
	ReasoningEffort string
	ModelType       ReasoningModelType
}

// DefaultReasoningConfig returns reasoning disabled, ready to be enabled
// by NewReasoningConfig or a caller that knows it wants thinking.
func DefaultReasoningConfig() *ReasoningConfig {
	return &ReasoningConfig{
		Enabled:         false,
		ExtractThinking: true,
		HideFromUser:    false,
		ThinkingTags:    "thinking",
		ThinkingBudget:  0,
		ReasoningEffort: string(ReasoningEffortMedium),
		ModelType:       ReasoningModelGeneric,
	}
}

// NewReasoningConfig builds an enabled config tuned for a known model family.
func NewReasoningConfig(modelType ReasoningModelType) *ReasoningConfig {
	cfg := DefaultReasoningConfig()
	cfg.Enabled = true
	cfg.ModelType = modelType

	switch modelType {
	case ReasoningModelOpenAI_O1:
		cfg.ThinkingTags = "thinking"
		cfg.ThinkingBudget = 10000
	case ReasoningModelOpenAI_O3:
		cfg.ThinkingTags = "thinking"
		cfg.ThinkingBudget = 12000
	case ReasoningModelOpenAI_O4:
		cfg.ThinkingTags = "thinking"
		cfg.ThinkingBudget = 14000
	case ReasoningModelClaude_Opus:
		cfg.ThinkingTags = "thinking"
		cfg.ThinkingBudget = 5000
	case ReasoningModelClaude_Sonnet:
		cfg.ThinkingTags = "thinking"
		cfg.ThinkingBudget = 4000
	case ReasoningModelDeepSeek_R1:
		cfg.ThinkingTags = "think"
		cfg.ThinkingBudget = 8000
	case ReasoningModelQwQ_32B:
		cfg.ThinkingTags = "thinking"
		cfg.ThinkingBudget = 7000
	default:
		cfg.ThinkingTags = "thinking"
		cfg.ThinkingBudget = 5000
	}

	return cfg
}

// ReasoningTrace is the thinking content separated out of a raw completion.
type ReasoningTrace struct {
	ThinkingContent []string
	OutputContent   string
	ThinkingTokens  int
	OutputTokens    int
	TotalTokens     int
}

// ExtractReasoningTrace pulls <tag>...</tag> thinking blocks out of content,
// in the order they appear, leaving the remainder as OutputContent.
func ExtractReasoningTrace(content string, config *ReasoningConfig) *ReasoningTrace {
	trace := &ReasoningTrace{}

	if config == nil || !config.Enabled || !config.ExtractThinking {
		trace.OutputContent = content
		trace.OutputTokens = estimateTokens(content)
		trace.TotalTokens = trace.OutputTokens
		return trace
	}

	type block struct {
		start, end int
		text       string
	}
	var blocks []block

	for _, rawTag := range strings.Split(config.ThinkingTags, ",") {
		tag := strings.TrimSpace(rawTag)
		if tag == "" {
			continue
		}
		open, closeTag := "<"+tag+">", "</"+tag+">"
		from := 0
		for {
			oi := strings.Index(content[from:], open)
			if oi == -1 {
				break
			}
			oi += from
			bodyStart := oi + len(open)
			ci := strings.Index(content[bodyStart:], closeTag)
			if ci == -1 {
				break
			}
			ci += bodyStart
			blocks = append(blocks, block{start: oi, end: ci + len(closeTag), text: content[bodyStart:ci]})
			from = ci + len(closeTag)
		}
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].start < blocks[j].start })

	var output strings.Builder
	last := 0
	for _, b := range blocks {
		output.WriteString(content[last:b.start])
		trace.ThinkingContent = append(trace.ThinkingContent, strings.TrimSpace(b.text))
		last = b.end
	}
	output.WriteString(content[last:])
	trace.OutputContent = strings.TrimSpace(output.String())

	for _, t := range trace.ThinkingContent {
		trace.ThinkingTokens += estimateTokens(t)
	}
	trace.OutputTokens = estimateTokens(trace.OutputContent)
	trace.TotalTokens = trace.ThinkingTokens + trace.OutputTokens

	return trace
}

// ApplyReasoningBudget trims ThinkingContent so ThinkingTokens fits the
// configured budget. A zero budget means unlimited.
func ApplyReasoningBudget(trace *ReasoningTrace, config *ReasoningConfig) *ReasoningTrace {
	if config == nil || config.ThinkingBudget <= 0 {
		return trace
	}
	if trace.ThinkingTokens <= config.ThinkingBudget {
		return trace
	}

	budgeted := &ReasoningTrace{
		OutputContent: trace.OutputContent,
		OutputTokens:  trace.OutputTokens,
	}

	remaining := config.ThinkingBudget
	for _, block := range trace.ThinkingContent {
		tokens := estimateTokens(block)
		if tokens <= remaining {
			budgeted.ThinkingContent = append(budgeted.ThinkingContent, block)
			budgeted.ThinkingTokens += tokens
			remaining -= tokens
			continue
		}
		if remaining > 0 {
			truncated := truncateToTokenBudget(block, remaining)
			budgeted.ThinkingContent = append(budgeted.ThinkingContent, truncated)
			budgeted.ThinkingTokens += estimateTokens(truncated)
		}
		break
	}
	budgeted.TotalTokens = budgeted.ThinkingTokens + budgeted.OutputTokens

	return budgeted
}

// ValidateReasoningEffort normalizes a requested effort string, defaulting
// to medium and rejecting anything outside the known three levels.
func ValidateReasoningEffort(level string) (ReasoningEffortLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return ReasoningEffortMedium, nil
	case "low":
		return ReasoningEffortLow, nil
	case "medium", "med":
		return ReasoningEffortMedium, nil
	case "high":
		return ReasoningEffortHigh, nil
	default:
		return "", fmt.Errorf("invalid reasoning effort level: %q", level)
	}
}

func effortGuidance(effort string) string {
	switch strings.ToLower(effort) {
	case "low":
		return "Keep your reasoning brief."
	case "high":
		return "Provide comprehensive, thorough reasoning."
	default:
		return "Provide thorough reasoning."
	}
}

// FormatReasoningPrompt wraps a prompt with model-appropriate thinking
// instructions. A disabled config passes the prompt through untouched.
func FormatReasoningPrompt(prompt string, config *ReasoningConfig) string {
	if config == nil || !config.Enabled {
		return prompt
	}

	var b strings.Builder
	switch config.ModelType {
	case ReasoningModelDeepSeek_R1, ReasoningModelQwQ_32B:
		b.WriteString("<think>\n")
		b.WriteString(effortGuidance(config.ReasoningEffort))
		b.WriteString("\n</think>\n\n")
		b.WriteString(prompt)
	case ReasoningModelClaude_Opus, ReasoningModelClaude_Sonnet:
		b.WriteString("Think through this step-by-step before answering. ")
		b.WriteString(effortGuidance(config.ReasoningEffort))
		b.WriteString("\n\n")
		b.WriteString(prompt)
	default:
		if guidance := effortGuidance(config.ReasoningEffort); guidance != "" {
			b.WriteString(guidance)
			b.WriteString("\n\n")
		}
		b.WriteString(prompt)
	}

	return b.String()
}

// IsReasoningModel reports whether a model name belongs to a known
// reasoning family, and which one.
func IsReasoningModel(modelName string) (bool, ReasoningModelType) {
	name := strings.ToLower(modelName)

	switch {
	case strings.Contains(name, "o4"):
		return true, ReasoningModelOpenAI_O4
	case strings.Contains(name, "o3"):
		return true, ReasoningModelOpenAI_O3
	case strings.Contains(name, "o1"):
		return true, ReasoningModelOpenAI_O1
	case strings.Contains(name, "qwq"):
		return true, ReasoningModelQwQ_32B
	case strings.Contains(name, "deepseek") && (strings.Contains(name, "r1") || strings.Contains(name, "reasoner")):
		return true, ReasoningModelDeepSeek_R1
	case strings.Contains(name, "claude") && strings.Contains(name, "opus"):
		return true, ReasoningModelClaude_Opus
	case strings.Contains(name, "claude") && strings.Contains(name, "sonnet"):
		return true, ReasoningModelClaude_Sonnet
	default:
		return false, ReasoningModelGeneric
	}
}

type reasoningPricing struct {
	thinkingPer1M float64
	outputPer1M   float64
}

var reasoningPricingTable = map[ReasoningModelType]reasoningPricing{
	ReasoningModelOpenAI_O1:     {thinkingPer1M: 15.0, outputPer1M: 60.0},
	ReasoningModelOpenAI_O3:     {thinkingPer1M: 10.0, outputPer1M: 40.0},
	ReasoningModelOpenAI_O4:     {thinkingPer1M: 8.0, outputPer1M: 32.0},
	ReasoningModelClaude_Opus:   {thinkingPer1M: 15.0, outputPer1M: 75.0},
	ReasoningModelClaude_Sonnet: {thinkingPer1M: 3.0, outputPer1M: 15.0},
	ReasoningModelDeepSeek_R1:   {thinkingPer1M: 2.19, outputPer1M: 8.19},
	ReasoningModelQwQ_32B:       {thinkingPer1M: 0.5, outputPer1M: 2.0},
	ReasoningModelGeneric:       {thinkingPer1M: 1.0, outputPer1M: 3.0},
}

// CalculateReasoningCost prices a trace's thinking and output tokens
// separately using per-model-family rates.
func CalculateReasoningCost(trace *ReasoningTrace, config *ReasoningConfig, modelType ReasoningModelType) (thinkingCost, outputCost, totalCost float64) {
	pricing, ok := reasoningPricingTable[modelType]
	if !ok {
		pricing = reasoningPricingTable[ReasoningModelGeneric]
	}

	thinkingCost = float64(trace.ThinkingTokens) / 1_000_000.0 * pricing.thinkingPer1M
	outputCost = float64(trace.OutputTokens) / 1_000_000.0 * pricing.outputPer1M
	totalCost = thinkingCost + outputCost
	return
}

// GetReasoningBudgetRecommendation maps a rough use-case label to a
// starting thinking-token budget.
func GetReasoningBudgetRecommendation(useCase string) int {
	switch strings.ToLower(strings.TrimSpace(useCase)) {
	case "simple", "quick", "basic":
		return 2000
	case "standard", "normal", "medium", "":
		return 5000
	case "complex", "detailed", "thorough":
		return 10000
	case "research", "deep", "comprehensive":
		return 20000
	default:
		return 5000
	}
}

// OptimizeReasoningConfig fills in a thinking budget from the configured
// effort level when the caller left it unset.
func OptimizeReasoningConfig(config *ReasoningConfig, ctx context.Context) *ReasoningConfig {
	_ = ctx
	if config == nil || !config.Enabled {
		return config
	}
	if config.ThinkingBudget == 0 {
		switch strings.ToLower(config.ReasoningEffort) {
		case "low":
			config.ThinkingBudget = 3000
		case "high":
			config.ThinkingBudget = 15000
		default:
			config.ThinkingBudget = 7000
		}
	}
	return config
}

// MergeReasoningConfigs layers override's non-zero fields onto base.
func MergeReasoningConfigs(base, override *ReasoningConfig) *ReasoningConfig {
	if override == nil {
		return base
	}
	if base == nil {
		return override
	}

	merged := *base
	if override.Enabled {
		merged.Enabled = true
	}
	if override.ExtractThinking {
		merged.ExtractThinking = true
	}
	if override.HideFromUser {
		merged.HideFromUser = true
	}
	if override.ThinkingTags != "" {
		merged.ThinkingTags = override.ThinkingTags
	}
	if override.ThinkingBudget != 0 {
		merged.ThinkingBudget = override.ThinkingBudget
	}
	if override.ReasoningEffort != "" {
		merged.ReasoningEffort = override.ReasoningEffort
	}
	if override.ModelType != "" {
		merged.ModelType = override.ModelType
	}
	return &merged
}

func estimateTokens(text string) int {
	return len(text) / 4
}

func truncateToTokenBudget(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	charBudget := budget * 4
	if len(text) <= charBudget {
		return text
	}
	const suffix = "... [truncated]"
	cut := charBudget - len(suffix)
	if cut < 0 {
		cut = 0
	}
	return text[:cut] + suffix
}
