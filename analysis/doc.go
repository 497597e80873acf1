// Package analysis is a test-quality analysis pipeline built from agents.
//
// The pipeline parses Python test files, decides from the request mode
// whether the rule engine, the language model or both run, runs them as a
// parallel group, and merges their findings into a Report:
//
//	parser -> planner -> [rules | llm] -> merger
//
// Parsing failures halt the pipeline. Rule and model failures are recorded
// and the merger still runs on whatever the other analyser produced.
package analysis
