// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package mail renders and delivers transactional email. The only message
// today is the password reset mail; SMTPSender delivers it over
// SMTP+STARTTLS with retries on transient failures.
package mail
