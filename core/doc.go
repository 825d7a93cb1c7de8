// Package interview runs the client side of a live interview session.
//
// A [Session] owns one conversation log, one channel to the interview
// backend, an optional capture source turning speech into utterances, an
// optional speaker for assistant speech and a timer. Components receive
// their collaborators explicitly; nothing is reached through globals.
//
// Utterances flow two ways. Captured or typed text goes through the
// [Relay], which drops empty text and anything submitted while the
// assistant is speaking, sends it and appends a local echo to the log.
// Inbound frames are classified by the channel, appended to the log in
// arrival order and, for assistant speech, queued on the speaker.
//
// [Session.End] is the single teardown path. It stops capture, closes the
// channel, cancels speech output, stops the timer, stores the transcript
// and signals termination exactly once.
package interview
