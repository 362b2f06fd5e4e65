package workflow

// ServiceRequests moderates certificate and service applications.
var ServiceRequests = New(Definition{
	Kind:   KindServiceRequest,
	States: []Status{StatusPending, StatusInReview, StatusAdditionalInfo, StatusApproved, StatusRejected, StatusCompleted},
	Transitions: map[Status][]Status{
		StatusPending:        {StatusInReview, StatusAdditionalInfo, StatusApproved, StatusRejected},
		StatusInReview:       {StatusAdditionalInfo, StatusApproved, StatusRejected},
		StatusAdditionalInfo: {StatusInReview, StatusRejected},
		StatusApproved:       {StatusCompleted},
	},
	Resolved: []Status{StatusCompleted},
	SubmitterTransitions: map[Status][]Status{
		// answering an information request sends the application back for review
		StatusAdditionalInfo: {StatusInReview},
	},
	Deletable: []Status{StatusPending},
})

// Appointments moderates office visit bookings.
var Appointments = New(Definition{
	Kind:   KindAppointment,
	States: []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow},
	Transitions: map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	},
	Resolved: []Status{StatusCompleted},
	SubmitterTransitions: map[Status][]Status{
		StatusPending:   {StatusCancelled},
		StatusConfirmed: {StatusCancelled},
	},
})

// Emergencies moderates emergency reports.
var Emergencies = New(Definition{
	Kind:   KindEmergency,
	States: []Status{StatusReported, StatusAcknowledged, StatusInProgress, StatusResolved, StatusClosed},
	Transitions: map[Status][]Status{
		StatusReported:     {StatusAcknowledged, StatusInProgress, StatusResolved, StatusClosed},
		StatusAcknowledged: {StatusInProgress, StatusResolved, StatusClosed},
		StatusInProgress:   {StatusResolved, StatusClosed},
	},
	Resolved:  []Status{StatusResolved},
	Deletable: []Status{StatusReported},
})

// LegalCases moderates mediation and legal case filings.
var LegalCases = New(Definition{
	Kind:   KindLegalCase,
	States: []Status{StatusSubmitted, StatusUnderReview, StatusInvestigating, StatusResolved, StatusClosed},
	Transitions: map[Status][]Status{
		StatusSubmitted:     {StatusUnderReview, StatusClosed},
		StatusUnderReview:   {StatusInvestigating, StatusResolved, StatusClosed},
		StatusInvestigating: {StatusResolved, StatusClosed},
	},
	Resolved:  []Status{StatusResolved, StatusClosed},
	Deletable: []Status{StatusSubmitted},
})

// Discussions moderates forum threads. Deletion is a soft transition to deleted.
var Discussions = New(Definition{
	Kind:   KindDiscussion,
	States: []Status{StatusActive, StatusReported, StatusClosed, StatusHidden, StatusDeleted},
	Transitions: map[Status][]Status{
		StatusActive:   {StatusReported, StatusClosed, StatusHidden, StatusDeleted},
		StatusReported: {StatusActive, StatusHidden, StatusDeleted},
		StatusClosed:   {StatusActive, StatusDeleted},
		StatusHidden:   {StatusActive, StatusDeleted},
	},
	SubmitterTransitions: map[Status][]Status{
		StatusActive: {StatusDeleted},
		StatusClosed: {StatusDeleted},
	},
	Deletable: []Status{StatusActive, StatusClosed},
})

// Replies moderates forum replies.
var Replies = New(Definition{
	Kind:   KindReply,
	States: []Status{StatusActive, StatusReported, StatusHidden, StatusDeleted},
	Transitions: map[Status][]Status{
		StatusActive:   {StatusReported, StatusHidden, StatusDeleted},
		StatusReported: {StatusActive, StatusHidden, StatusDeleted},
		StatusHidden:   {StatusActive, StatusDeleted},
	},
	SubmitterTransitions: map[Status][]Status{
		StatusActive: {StatusDeleted},
	},
	Deletable: []Status{StatusActive},
})
