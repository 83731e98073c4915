// Package mail sends email. Callers build a Message and hand it to a Mail
// implementation; SMTP is the one shipped here.
package mail
