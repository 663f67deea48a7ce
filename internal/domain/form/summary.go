package form

import "strings"

// BuildSymptomSummary renders the submission as the plain-text list stored
// on the form and printed in its PDF.
func BuildSymptomSummary(cmd *SubmitFormCommand) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}

	if cmd.SeizureType != "" {
		line("Type de crise: " + cmd.SeizureType.Label())
	}

	sy := cmd.Symptoms
	flags := []struct {
		on    bool
		label string
	}{
		{sy.LossOfConsciousness, "Perte de connaissance"},
		{sy.ProgressiveFall, "Chute progressive"},
		{sy.SuddenFall, "Chute brusque"},
		{sy.BodyStiffening, "Raidissement du corps"},
		{sy.ClonicJerks, "Secousses cloniques"},
		{sy.Automatisms, "Automatismes"},
		{sy.EyeDeviation, "Déviation des yeux (d'un côté)"},
		{sy.ActivityStop, "Arrêt de l'activité en cours"},
		{sy.SensitiveDisorders, "Troubles sensitifs"},
		{sy.SensoryDisorders, "Troubles sensoriels"},
		{sy.Incontinence, "Incontinence (urine/selles)"},
		{sy.LateralTongueBiting, "Morsure latérale de la langue"},
		{sy.IsFirstSeizure, "Première crise"},
	}
	for _, f := range flags {
		if f.on {
			line(f.label)
		}
	}

	if sy.HasAura {
		aura := "Aura présente"
		if d := strings.TrimSpace(sy.AuraDescription); d != "" {
			aura += " : " + d
		}
		line(aura)
	}

	if o := strings.TrimSpace(sy.OtherInformation); o != "" {
		line("Informations supplémentaires: " + o)
	}

	return b.String()
}
