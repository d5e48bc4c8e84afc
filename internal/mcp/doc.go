// Package mcp exposes perception analysis and memory recall as Model Context
// Protocol tools over stdio.
//
// Tools:
//
//	analyze_utterance  text (+ optional pitch, user_id) -> tone and perception record
//	recall_memory      user_id (+ optional query)        -> working and long-term memory
package mcp
