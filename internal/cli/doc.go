// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the chatdesk command line.
//
// Commands:
//
//	chatdesk [tui]          full-screen chat client (needs a saved session)
//	chatdesk chat           line-mode chat with input history
//	chatdesk ask QUESTION   one question, reply on stdout
//	chatdesk conversations  list conversations, most recent first
//	chatdesk export [ID]    write a transcript as Markdown or JSON
//	chatdesk login          log in and save the session
//	chatdesk register       create an account and log in
//	chatdesk logout         delete the saved session
//	chatdesk whoami         show the logged-in account
//	chatdesk feedback       rate the assistant
//	chatdesk admin feedback review all feedback (administrators)
//	chatdesk serve          run the development backend
//	chatdesk config ...     show, get, set, keys, path
//	chatdesk version        build information
//
// Every command returns its error to Execute, which prints it once and maps
// it to an exit code (see GetExitCode).
package cli
