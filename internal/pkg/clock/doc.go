// Package clock provides the time source used by the dispatch engine.
//
// Lookahead windows and suppression windows are computed from Clocker.Now, so
// tests pin time with Fixed instead of sleeping.
package clock
