// Package accounts implements the console account lifecycle on top of the
// Keycloak admin API: organization signup, email verification, admin
// approval and rejection, and user listings.
//
// Keycloak is the system of record. User state lives in two attributes,
// "status" (pending, approved or rejected) and "verificationToken", and a
// user's enabled flag always follows its status: only approved users are
// enabled.
//
// Notification mail is handed to a Notifier and never fails the operation
// that triggered it.
package accounts
