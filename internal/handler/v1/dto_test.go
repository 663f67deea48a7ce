package v1

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/config"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/response"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubmitFormRequest_Command(t *testing.T) {
	total := 4
	req := submitFormRequest{
		FullName:         "Patient 12345678",
		BirthDate:        "1990-12-31",
		Gender:           "f",
		CIN:              "12345678",
		Governorate:      "Tunis",
		SeizureType:      " absence ",
		FirstSeizureDate: "2023-01-10",
		TotalSeizures:    &total,
		SeizureFrequency: "weekly",
		JerkingMovements: true,
		TongueBiting:     true,
		HasAura:          true,
		AuraDescription:  "visual",
	}

	cmd, err := req.command()
	require.NoError(t, err)
	assert.Equal(t, patient.GenderFemale, cmd.Patient.Gender)
	assert.Equal(t, "Tunis", cmd.Patient.Governorate)
	require.NotNil(t, cmd.Patient.Birthdate)
	assert.Equal(t, time.Date(1990, 12, 31, 0, 0, 0, 0, time.UTC), *cmd.Patient.Birthdate)
	assert.Equal(t, form.SeizureType("absence"), cmd.SeizureType)
	assert.Equal(t, form.SeizureFrequency("WEEKLY"), cmd.SeizureFrequency)
	assert.Nil(t, cmd.DateLastSeizure)
	assert.True(t, cmd.Symptoms.ClonicJerks)
	assert.True(t, cmd.Symptoms.LateralTongueBiting)
	assert.Equal(t, "visual", cmd.Symptoms.AuraDescription)
}

func TestSubmitFormRequest_ReportsEveryBadField(t *testing.T) {
	req := submitFormRequest{
		BirthDate:        "31/12/1990",
		Gender:           "X",
		SeizureFrequency: "hourly",
		LastSeizureDate:  "yesterday",
	}

	_, err := req.command()
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)
}

func TestFormResponseRequest_FollowUpDate(t *testing.T) {
	cmd, err := formResponseRequest{FormID: 3, ResponseType: "DIAGNOSIS", FollowUpDate: "2024-05-02"}.command()
	require.NoError(t, err)
	assert.Equal(t, response.Type("DIAGNOSIS"), cmd.ResponseType)
	require.NotNil(t, cmd.FollowUpDate)
	assert.Equal(t, time.May, cmd.FollowUpDate.Month())

	_, err = formResponseRequest{FormID: 3, FollowUpDate: "next week"}.command()
	var verr *service.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestToUserDTO_OmitsSecrets(t *testing.T) {
	u := &domain.User{ID: 5, Name: "Dr A", Email: "a@hopital.tn", PasswordHash: "$2a$10$secret", Role: domain.RoleNeurologue, IsActive: true}

	raw, err := json.Marshal(toUserDTO(u))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.Contains(t, string(raw), `"role":"NEUROLOGUE"`)
}

func TestToFormDTO_Projection(t *testing.T) {
	assigned := uint(8)
	f := &form.MedicalForm{
		ID:           11,
		Status:       form.StatusSubmitted,
		SeizureType:  form.SeizureType("absence"),
		AssignedToID: &assigned,
		AssignedTo:   &domain.User{ID: 8, Name: "Dr N", Role: domain.RoleNeurologue},
		Patient:      &patient.Patient{ID: 2, CIN: "12345678", Name: "Patient 12345678"},
		Attachments: []form.FileAttachment{
			{ID: 21, FormID: 11, Kind: form.AttachmentMRI, FileName: "irm.png", MimeType: "image/png"},
		},
	}

	dto := toFormDTO(f)
	assert.Equal(t, "Absence", dto.SeizureTypeLabel)
	require.NotNil(t, dto.AssignedTo)
	assert.Equal(t, uint(8), dto.AssignedTo.ID)
	assert.Nil(t, dto.Doctor)
	require.Len(t, dto.Attachments, 1)
	assert.Equal(t, "/api/neurologue/attachments/21", dto.Attachments[0].URL)
	assert.Equal(t, "12345678", dto.Patient.CIN)
}

func TestSubmitForm_RejectsMalformedBodies(t *testing.T) {
	h := &Handler{upload: config.UploadConfig{MaxImageBytes: 1 << 10, MaxVideoBytes: 1 << 10}, log: zap.NewNop()}
	r := gin.New()
	r.POST("/submit", h.submitForm)

	t.Run("multipart without form part", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("other", "x"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/submit", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `\"form\" is required`)
	})

	t.Run("invalid frequency", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/submit", bytes.NewBufferString(`{"seizureFrequency":"hourly"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "seizure frequency")
	})
}

// quickTimeHeader is the start of a .mov file as recorded by phones.
var quickTimeHeader = []byte{
	0x00, 0x00, 0x00, 0x14, 'f', 't', 'y', 'p', 'q', 't', ' ', ' ',
	0x00, 0x00, 0x02, 0x00, 'q', 't', ' ', ' ',
	0x00, 0x00, 0x00, 0x08, 'w', 'i', 'd', 'e',
}

func TestReadUpload_SniffsUntypedVideo(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("seizureVideo", "crise.mov")
	require.NoError(t, err)
	_, err = part.Write(quickTimeHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/submit", &body)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())

	up, err := readUpload(c, "seizureVideo", form.AttachmentVideo)
	require.NoError(t, err)
	require.NotNil(t, up)
	assert.Equal(t, "video/quicktime", up.MimeType)
	assert.Equal(t, "crise.mov", up.FileName)
	assert.Equal(t, quickTimeHeader, up.Data)

	missing, err := readUpload(c, "mriPhoto", form.AttachmentMRI)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSniffMimeType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")
	tests := []struct {
		name     string
		declared string
		data     []byte
		want     string
	}{
		{"declared type wins", "video/mp4", quickTimeHeader, "video/mp4"},
		{"octet-stream is sniffed", "application/octet-stream", quickTimeHeader, "video/quicktime"},
		{"missing type is sniffed", "", png, "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffMimeType(tt.declared, tt.data))
		})
	}
}
