// Package widgets holds the small interactive pieces of the site: scroll
// toggles, the FAQ accordion, the course filter, the mobile menu, form
// validation and submission, and the notification slot.
package widgets
