// Copyright (c) Microsoft. All rights reserved.

// Package chat provides the conversational core of the playground: the
// session [Transcript], the tool [Registry], and the [Orchestrator] that
// turns a user utterance into assistant turns.
//
// # Quick Start
//
// Create a ChatClient (e.g. from the openai package), register tools, and
// submit against a session:
//
//	client := openai.New(key, openai.WithAzureDeployment("gpt-4o"))
//
//	registry, err := chat.NewRegistry(weatherTool)
//	orch := chat.NewOrchestrator(client,
//	    chat.WithRegistry(registry),
//	    chat.WithAuditSink(telemetry.NewLogSink(logger)),
//	)
//
//	session := chat.NewSession()
//	turns, err := orch.Submit(ctx, session, "What's the weather in Oslo?")
//	for _, turn := range session.Transcript().Turns() { ... }
//
// # Function calling
//
// When the model answers with a function call, the orchestrator looks the
// name up in the registry, decodes the JSON arguments, invokes the tool and
// appends two turns (the call and its JSON-encoded result) before calling
// the model again. The loop is bounded by [WithMaxRecursion]; exceeding it
// fails the submission with [ErrRecursionLimitExceeded] and no final turn.
//
// # Feedback
//
// Final assistant turns carry the id of the API response that produced them.
// [FeedbackRecorder.RecordFeedback], embedded in every [Assistant], rates
// such a turn once and emits an audit event.
//
// # Assistants
//
// The [Orchestrator] is one [Assistant]. The agent package runs a
// tool-using agent over the same sessions, and the semantic package a
// one-shot prompt function; all of them append to the session through
// [Session.Exchange].
package chat
