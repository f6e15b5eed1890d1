// Package models defines domain entities for the notification preference sweep tool.
//
// The package contains two categories of types:
//
// 1. Platform records: structs decoded directly from the LMS REST API
//   - [Account] : the administrative account scope for a run
//   - [Term] : an academic period grouping courses
//   - [Course] : a course within a term, discovered during enumeration
//   - [Enrollment] : the relation binding a user to a course with a role
//   - [User] : a platform account, the unit of preference ownership
//   - [CommunicationChannel] : a delivery channel registered to a user
//   - [Preference] : one notification category's frequency on a channel
//
// 2. Closed enumerations validated at configuration-load time:
//   - [Role] : enrollment role tags (observer, student, teacher, ...)
//   - [Frequency] : notification delivery frequencies (never ... weekly)
//
// Every record is rebuilt fresh from the remote platform each run; nothing in
// this package is persisted locally.
package models
