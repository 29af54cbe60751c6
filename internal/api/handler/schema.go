package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"     validate:"omitempty,max=50"`
	Phone    string `json:"phone"    validate:"omitempty,max=20"`
}

type changePasswordRequest struct {
	NewPassword     string `json:"newPassword"     validate:"required,min=6"`
	CurrentPassword string `json:"currentPassword"`
}

// --- Roster ---

type createTeacherRequest struct {
	Email             string `json:"email"             validate:"required,email"`
	TemporaryPassword string `json:"temporaryPassword" validate:"required,min=6"`
	Name              string `json:"name"              validate:"required,max=50"`
	Phone             string `json:"phone"             validate:"omitempty,max=20"`
}

type updateTeacherRequest struct {
	Name   *string `json:"name"   validate:"omitempty,min=1,max=50"`
	Phone  *string `json:"phone"  validate:"omitempty,max=20"`
	Status *string `json:"status" validate:"omitempty,oneof=pending approved"`
}

// studentRequest serves both POST and PATCH; absent fields are left untouched.
type studentRequest struct {
	Name        *string `json:"name"        validate:"omitempty,max=50"`
	Grade       *int    `json:"grade"       validate:"omitempty,gte=0,lte=12"`
	Gender      *string `json:"gender"      validate:"omitempty,max=10"`
	Phone       *string `json:"phone"       validate:"omitempty,max=20"`
	ParentPhone *string `json:"parentPhone" validate:"omitempty,max=20"`
	Birthday    *string `json:"birthday"    validate:"omitempty"`
	MokjangID   *string `json:"mokjangId"`
	Notes       *string `json:"notes"       validate:"omitempty,max=1000"`
}

type mokjangRequest struct {
	Name      *string `json:"name"      validate:"omitempty,max=50"`
	TeacherID *string `json:"teacherId"`
}

type ministryRequest struct {
	Name        *string `json:"name"        validate:"omitempty,max=50"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type memberRequest struct {
	Kind     string `json:"kind"     validate:"required,oneof=student teacher"`
	MemberID string `json:"memberId" validate:"required"`
}

type markAttendanceRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	Week      string `json:"week"      validate:"required,datetime=2006-01-02"`
	Present   bool   `json:"present"`
}

// --- SMS ---

type recipientRequest struct {
	Name  string `json:"name"  validate:"max=60"`
	Phone string `json:"phone" validate:"required,max=20"`
}

type sendSMSRequest struct {
	Recipients []recipientRequest `json:"recipients" validate:"required,min=1,max=500,dive"`
	Message    string             `json:"message"    validate:"required,max=2000"`
}

type acceptedResponse struct {
	Accepted int    `json:"accepted"`
	BatchID  string `json:"batchId"`
}
