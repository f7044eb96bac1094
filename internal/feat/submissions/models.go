package submissions

import "time"

// Submission is one stored contact form post.
type Submission struct {
	ID             int64
	Name           string
	Mail           string
	SubjectID      int64
	SubjectName    string
	Message        string
	Newsletter     bool
	Language       string
	Timestamp      int64
	IPAddress      string
	IPAddressProxy string
	UserAgent      string
}

// SubjectRef is the subject a submission was written about: the id of the
// taxonomy term and the name it had at the time.
type SubjectRef struct {
	ID   int64
	Name string
}

// Subject returns the subject reference of s.
func (s Submission) Subject() SubjectRef {
	return SubjectRef{ID: s.SubjectID, Name: s.SubjectName}
}

// Time returns the submission time.
func (s Submission) Time() time.Time {
	return time.Unix(s.Timestamp, 0)
}
