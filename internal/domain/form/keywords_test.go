package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name    string
		cmd     SubmitFormCommand
		include []string
		exclude []string
	}{
		{
			name:    "absence seizure",
			cmd:     SubmitFormCommand{SeizureType: SeizureAbsence},
			include: []string{"absence", "petit mal"},
			exclude: []string{"grand mal"},
		},
		{
			name:    "tonic-clonic seizure",
			cmd:     SubmitFormCommand{SeizureType: SeizureGeneralizedTonicClonic},
			include: []string{"generalizedtonicclonic", "grand mal", "convulsive"},
		},
		{
			name:    "focal seizure",
			cmd:     SubmitFormCommand{SeizureType: SeizureFocalWithConsciousLoss},
			include: []string{"partial", "focal"},
		},
		{
			name: "symptom flags",
			cmd: SubmitFormCommand{Symptoms: Symptoms{
				LossOfConsciousness: true,
				BodyStiffening:      true,
				ClonicJerks:         true,
				EyeDeviation:        true,
			}},
			include: []string{"conscience", "unconscious", "tonic", "stiffening", "rigidity", "clonic", "jerking", "convulsion", "ocular", "eye", "vision"},
		},
		{
			name: "free text keeps words of four letters or more",
			cmd: SubmitFormCommand{Symptoms: Symptoms{
				HasAura:          true,
				AuraDescription:  "Odeur de brûlé, vue trouble",
				OtherInformation: "Sommeil agité",
			}},
			include: []string{"aura", "odeur", "brûlé", "trouble", "sommeil", "agité"},
			exclude: []string{"de", "vue"},
		},
		{
			name:    "aura without description adds nothing",
			cmd:     SubmitFormCommand{Symptoms: Symptoms{HasAura: true}},
			exclude: []string{"aura"},
		},
		{
			name:    "daily frequency",
			cmd:     SubmitFormCommand{SeizureFrequency: FrequencyDaily},
			include: []string{"daily", "frequent", "severe"},
		},
		{
			name:    "weekly frequency",
			cmd:     SubmitFormCommand{SeizureFrequency: FrequencyWeekly},
			include: []string{"weekly", "regular", "moderate"},
		},
		{
			name:    "yearly frequency",
			cmd:     SubmitFormCommand{SeizureFrequency: FrequencyYearly},
			include: []string{"yearly", "occasional", "rare"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(&tt.cmd)
			for _, k := range tt.include {
				assert.Contains(t, got, k)
			}
			for _, k := range tt.exclude {
				assert.NotContains(t, got, k)
			}
			assert.IsIncreasing(t, got)
		})
	}
}

func TestExtractKeywords_Empty(t *testing.T) {
	assert.Empty(t, ExtractKeywords(&SubmitFormCommand{}))
}

func TestMatchesSpecialization(t *testing.T) {
	kw := []string{"absence", "petit mal"}

	assert.True(t, MatchesSpecialization("Épilepsie - Absence seizures", kw))
	assert.True(t, MatchesSpecialization("PETIT MAL", kw))
	assert.False(t, MatchesSpecialization("general neurology", kw))
	assert.False(t, MatchesSpecialization("", kw))
	assert.False(t, MatchesSpecialization("absence", nil))
}
