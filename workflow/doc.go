// Package workflow holds the status machines shared by every officer-moderated
// record in the portal: service requests, appointments, emergency reports,
// legal cases and forum content.
//
// A Machine knows the ordered statuses of one record kind, which transitions
// are legal from each status, which statuses are terminal, which transitions a
// submitter may perform on their own record and in which statuses a submitter
// may still delete it. Storage and HTTP concerns live elsewhere; this package
// only decides.
package workflow
