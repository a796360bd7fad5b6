package intent

// Replies shown to the user. They are returned as fulfillment text and must
// never carry error details.
const (
	MsgDefault = "Sorry, I'm unable to process that request at the moment. Please try asking in a different way or contact HR directly."

	MsgIdentityRequired = "I'm sorry, I can't retrieve personalized information without knowing your employee ID. Please ensure you are logged in to the HR portal."

	MsgInternalError = "An error occurred while fetching information. Please try again later or contact HR directly if the issue persists."

	MsgAskLeaveType   = "Please specify which type of leave you'd like to know about (e.g., annual leave, sick leave)."
	MsgAskPayroll     = "I can help with payroll questions. Are you asking about pay dates, how to access your pay stub, or something else?"
	MsgAskDepartment  = "Which HR department's contact information are you looking for? (e.g., Benefits, Payroll, Recruitment, or General HR)"
	MsgAskLLMQuestion = "What would you like to ask?"

	msgLeaveBalance     = "Your %s leave balance is %s days."
	msgLeaveNotFound    = "Could not find specific policy or balance details for %s. Please check the HR portal."
	msgLeaveUnavailable = "Sorry, I couldn't retrieve your leave balance at this time. Please try again later."
	msgLeaveStatus      = "There was an issue connecting to the policy system. Please try again or contact HR directly."
	msgLeaveNetwork     = "I'm having trouble reaching the HR system. Please try again in a moment."
	msgLeaveUnexpected  = "An unexpected error occurred while getting leave policy. Please try again."

	msgPayDate            = "Your next pay date is %s."
	msgPayStub            = "You can access your latest pay stub at: %s"
	msgPayrollNotFound    = "Could not find specific payroll information for %s. Please check the HR portal."
	msgPayrollUnavailable = "Sorry, I couldn't retrieve payroll information at this time. Please try again later."
	msgPayrollError       = "An error occurred while fetching payroll details. Please try again."

	msgContact            = "For %s, contact %s at %s."
	msgContactNotFound    = "Could not find specific contact details for %s department. Please check the HR portal."
	msgContactUnavailable = "Sorry, I couldn't retrieve contact information at this time. Please try again later."
	msgContactError       = "An error occurred while fetching contact details. Please try again."

	msgLLMError = "Sorry, I had an issue talking to the assistant."
)
