// Package workflow advances queued scan jobs through their processing
// stages.
//
// The Manager polls for pending jobs and drives each one through the
// scanning stage (walking the music directory) and the reconciling stage
// (applying the walk results to the track inventory), maintaining
// heartbeats so a second daemon or a restart can detect and recover
// abandoned work. Jobs interrupted mid-scan are reset to pending on
// startup; jobs whose heartbeats stop entirely are failed by a background
// monitor. Scan start, completion, and failure are reported through the
// notifications service.
package workflow
