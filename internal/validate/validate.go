// Package validate scores free-text responses against a stage's clarity rules.
//
// Per-rule pass/fail is the advancement gate: the first failing rule
// short-circuits and its feedback is returned. The mean score across rules is
// informational only and feeds the Clear flag shown to the user.
package validate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clarityworks/clarifier/internal/catalog"
	"github.com/clarityworks/clarifier/internal/llm"
)

// ClarityThreshold is the informational mean-score bar for a "clear" response.
const ClarityThreshold = 0.7

// Result is the outcome of validating one response.
type Result struct {
	Accepted bool
	Score    float64
	Clear    bool
	Feedback string
}

// Validator applies a stage's rules to a response. The completion port is
// optional: the specificity rule degrades to a local heuristic without it.
type Validator struct {
	client llm.Client
	logger zerolog.Logger
}

// New creates a Validator. A nil client disables model-based scoring.
func New(client llm.Client, logger zerolog.Logger) *Validator {
	if client == nil {
		client = llm.Disabled{}
	}
	return &Validator{
		client: client,
		logger: logger.With().Str("component", "validate").Logger(),
	}
}

// Validate runs every rule of the stage against the response. Stages without
// explicit rules fall back to the simple word-count check.
func (v *Validator) Validate(ctx context.Context, def *catalog.StageDefinition, response string) Result {
	if len(def.Rules) == 0 {
		return simpleValidation(response)
	}

	var total float64
	var feedback []string
	for _, rule := range def.Rules {
		ok, score, msg := v.applyRule(ctx, rule, response)
		if !ok {
			return Result{Accepted: false, Score: score, Feedback: msg}
		}
		total += score
		if msg != "" {
			feedback = append(feedback, msg)
		}
	}

	mean := total / float64(len(def.Rules))
	fb := strings.Join(feedback, " ")
	if fb == "" {
		fb = "Response looks good!"
	}
	return Result{Accepted: true, Score: mean, Clear: mean >= ClarityThreshold, Feedback: fb}
}

func (v *Validator) applyRule(ctx context.Context, rule catalog.Rule, response string) (bool, float64, string) {
	switch rule.Type {
	case catalog.RuleMinWords:
		return minWords(rule, response)
	case catalog.RuleMinFeatures:
		return minFeatures(rule, response)
	case catalog.RuleMinExclusions:
		return minExclusions(rule, response)
	case catalog.RuleRequiredEntities:
		return requiredEntities(rule, response)
	case catalog.RuleTechCompleteness:
		return techCompleteness(rule, response)
	case catalog.RuleApproval:
		return v.approval(ctx, rule, response)
	case catalog.RuleSpecificity:
		return v.specificity(ctx, rule, response)
	default:
		v.logger.Warn().Str("rule", rule.Type).Msg("unknown rule type, skipping")
		return true, 0.7, ""
	}
}

// ---- individual rules ----

func minWords(rule catalog.Rule, response string) (bool, float64, string) {
	threshold := int(rule.Threshold)
	if threshold <= 0 {
		threshold = 3
	}
	wc := wordCount(response)
	if wc < threshold {
		return false, 0.3, message(rule, fmt.Sprintf("Please provide at least %d words", threshold))
	}
	return true, min1(float64(wc) / float64(threshold*2)), ""
}

func minFeatures(rule catalog.Rule, response string) (bool, float64, string) {
	threshold := int(rule.Threshold)
	if threshold <= 0 {
		threshold = 2
	}

	items := nonEmpty(strings.Split(response, "\n"))
	if len(items) < threshold {
		if byComma := nonEmpty(strings.Split(response, ",")); len(byComma) > len(items) {
			items = byComma
		}
	}

	if len(items) < threshold {
		return false, float64(len(items)) / float64(threshold),
			message(rule, fmt.Sprintf("Please specify at least %d features", threshold))
	}
	return true, min1(float64(len(items)) / float64(threshold)), ""
}

var negationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)not?\s+\w+`),
	regexp.MustCompile(`(?i)no\s+\w+`),
	regexp.MustCompile(`(?i)exclude\s+\w+`),
	regexp.MustCompile(`(?i)without\s+\w+`),
	regexp.MustCompile(`(?i)don't\s+\w+`),
	regexp.MustCompile(`(?i)won't\s+\w+`),
	regexp.MustCompile(`(?i)skip\s+\w+`),
}

func minExclusions(rule catalog.Rule, response string) (bool, float64, string) {
	threshold := int(rule.Threshold)
	if threshold <= 0 {
		threshold = 1
	}

	var exclusions []string
	for _, p := range negationPatterns {
		exclusions = append(exclusions, p.FindAllString(response, -1)...)
	}
	exclusions = append(exclusions, nonEmpty(strings.Split(response, "\n"))...)

	if len(exclusions) < threshold {
		return false, float64(len(exclusions)) / float64(threshold),
			message(rule, fmt.Sprintf("Please specify at least %d item to exclude", threshold))
	}
	return true, min1(float64(len(exclusions)) / float64(threshold)), ""
}

func requiredEntities(rule catalog.Rule, response string) (bool, float64, string) {
	if len(rule.Entities) == 0 {
		return true, 1.0, ""
	}
	lower := strings.ToLower(response)

	var missing []string
	found := 0
	for _, e := range rule.Entities {
		if strings.Contains(lower, strings.ToLower(e)) {
			found++
		} else {
			missing = append(missing, e)
		}
	}

	if len(missing) > 0 {
		return false, float64(found) / float64(len(rule.Entities)),
			message(rule, "Please specify: "+strings.Join(missing, ", "))
	}
	return true, 1.0, ""
}

// categoryKeywords backs the tech completeness check. A category not listed
// here matches on its own name.
var categoryKeywords = map[string][]string{
	"frontend": {"react", "vue", "angular", "frontend", "client", "ui", "html", "css", "javascript"},
	"backend":  {"node", "python", "java", "backend", "server", "api", "express", "django", "flask", "go"},
	"database": {"mysql", "postgres", "mongodb", "database", "db", "sql", "nosql", "redis", "sqlite"},
}

func techCompleteness(rule catalog.Rule, response string) (bool, float64, string) {
	if len(rule.Categories) == 0 {
		return true, 1.0, ""
	}
	lower := strings.ToLower(response)

	var missing []string
	found := 0
	for _, cat := range rule.Categories {
		keywords, ok := categoryKeywords[cat]
		if !ok {
			keywords = []string{cat}
		}
		matched := false
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if matched {
			found++
		} else {
			missing = append(missing, cat)
		}
	}

	if len(missing) > 0 {
		return false, float64(found) / float64(len(rule.Categories)),
			message(rule, "Please specify: "+strings.Join(missing, ", "))
	}
	return true, 1.0, ""
}

var (
	positiveLexicon = []string{"yes", "ok", "good", "approve", "confirm", "agree", "looks good", "perfect"}
	negativeLexicon = []string{"no", "not", "change", "modify", "different", "wrong"}
)

func (v *Validator) approval(ctx context.Context, rule catalog.Rule, response string) (bool, float64, string) {
	lower := strings.ToLower(response)

	positive, negative := 0, 0
	for _, w := range positiveLexicon {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range negativeLexicon {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	if negative > positive {
		return false, 0.3, message(rule, "Please let me know what you'd like to change")
	}
	if positive > 0 {
		return true, 0.9, ""
	}
	// Neither clearly positive nor negative: fall through to specificity.
	return v.specificity(ctx, rule, response)
}

var scoreTokenRe = regexp.MustCompile(`0?\.\d+|[01]`)

func (v *Validator) specificity(ctx context.Context, rule catalog.Rule, response string) (bool, float64, string) {
	threshold := rule.Threshold
	if threshold <= 0 {
		threshold = 0.6
	}

	prompt := rule.Prompt
	if prompt == "" {
		prompt = "Rate the specificity of the following text from 0 to 1:\n\n" + response
	} else {
		prompt = strings.ReplaceAll(prompt, "{response}", response)
	}

	reply, err := v.client.Complete(ctx, llm.CompletionRequest{
		Messages: llm.SystemUser(
			"You are an AI that rates text specificity. Return only a number between 0 and 1.",
			prompt,
		),
		Temperature: 0.3,
	})
	if err == nil {
		if m := scoreTokenRe.FindString(reply); m != "" {
			if score, perr := strconv.ParseFloat(m, 64); perr == nil {
				if score < threshold {
					return false, score, message(rule, "Please be more specific")
				}
				return true, score, ""
			}
		}
	} else {
		v.logger.Debug().Err(err).Msg("specificity completion failed, using heuristic")
	}

	return heuristicSpecificity(response, threshold, rule)
}

// heuristicSpecificity estimates specificity from length and vocabulary size.
func heuristicSpecificity(response string, threshold float64, rule catalog.Rule) (bool, float64, string) {
	words := strings.Fields(strings.ToLower(response))
	unique := make(map[string]bool, len(words))
	for _, w := range words {
		unique[w] = true
	}

	score := min1(float64(len(words)*len(unique)) / 100)
	if score < threshold {
		return false, score, message(rule, "Please be more specific")
	}
	return true, score, ""
}

// simpleValidation is the rule-less fallback: a bare word-count check.
func simpleValidation(response string) Result {
	switch wc := wordCount(response); {
	case wc < 2:
		return Result{Accepted: false, Score: 0.2, Feedback: "Please provide more details"}
	case wc < 5:
		return Result{Accepted: true, Score: 0.6, Feedback: "Consider adding more details"}
	default:
		return Result{Accepted: true, Score: 0.8, Clear: true}
	}
}

// Simple exposes the rule-less fallback for callers outside the rule engine.
func Simple(response string) Result {
	return simpleValidation(response)
}

// ---- helpers ----

func wordCount(s string) int { return len(strings.Fields(s)) }

func nonEmpty(items []string) []string {
	var out []string
	for _, it := range items {
		if t := strings.TrimSpace(it); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func message(rule catalog.Rule, fallback string) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fallback
}

func min1(f float64) float64 {
	if f > 1 {
		return 1
	}
	return f
}
