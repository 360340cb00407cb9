package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/geowatch/geowatch/region"
)

// systemPrompt pins the output contract. Kept separate from the user
// prompt because the OpenAI-style backends take it as a system message.
const systemPrompt = `You are a helpful AI assistant that outputs strict JSON. Do not say "Here is the JSON" or anything else. Just the JSON.`

// promptTemplate is the deterministic per-region prompt. Placeholders:
// current date, region focus, target count, and the date again for the
// no-future-dates rule.
const promptTemplate = `You are a Global Conflict Intelligence Analyst.
Current Date: %s.

Focus Region: **%s**.

Identify **TARGET %d** MAJOR, GLOBALLY SIGNIFICANT conflicts or geopolitical events.

CRITICAL DISTRIBUTION GOAL (Aim for this balance, but prioritize TRUTH):
- **RED Events (War/Conflict)**: Active Fighting, High Casualties, Coups.
- **YELLOW Events (Tension/Unrest)**: Protests, Border Standoffs, Diplomatic Warnings.
- **GREEN Events (Diplomacy/Peace)**: Ceasefire talks, Treaties, Aid deals.

CRITICAL FILTERING CRITERIA:
- **TIMEFRAME**: Events must be **ONGOING** or have significant developments within the **LAST 3 MONTHS**. Do NOT include stale events unless they just flared up again.
- **INCLUDE**: Active Wars & Military Offensives; Major Coups & rebellions; Significant Geopolitical Tensions & Diplomatic Crises (e.g., territorial disputes); Large-scale nationwide protests threatening stability.
- **EXCLUDE**: Small local skirmishes, low-level crime, minor political disagreements, or events only relevant to a single town/village.
- **HALLUCINATION CHECK**: Do **NOT** invent events to fill the quota. Better to return FEWER events that are TRUE than MANY that are FALSE.
- **DATE FORMAT**: Provide the exact date of the most recent development. Vague dates are UNACCEPTABLE.
- **SOURCES**: Only include source URLs you are certain of; omit the field otherwise.

CRITICAL INSTRUCTIONS:
1. **NO FUTURE DATES**: All events must have happened BEFORE %s.
2. **FORMAT**:
   Return a STRICT JSON array of objects.
   Each object MUST have the following structure:
   {
     "title": "Headline (Specific & Accurate)",
     "description": "STRICTLY CHRONOLOGICAL BULLET POINTS of recent developments.",
     "type": "conflict", // or protest, civil_unrest, armed_clash, demonstration, other
     "severity": "red", // or yellow, green. RED = Active War/High Casualties. YELLOW = Unrest/Tension/Diplomatic Crisis.
     "country": "Country Name",
     "region": "Region/State",
     "city": "City",
     "latitude": 0.0, // DECIMAL COORDINATES REQUIRED
     "longitude": 0.0, // DECIMAL COORDINATES REQUIRED
     "sources": ["url1", "url2"], // omit if uncertain
     "latest_date": "YYYY-MM-DD" // EXACT DATE of the most recent development
   }

3. **DESCRIPTION FORMATTING RULES**:
   - MUST be a string containing bullet points.
   - Start with the MOST RECENT update at the top.
   - Format: "• [Date] [Time]: [Specific Action/Development]"
   - Example:
     "• Jan 14, 15:00: President announces severance of diplomatic ties.\n• Jan 13, 09:30: Military mobilized to border region."
   - Do NOT provide a vague summary. Give specific tactical or diplomatic updates.

Output strictly valid JSON array only. No conversational text.`

// BuildPrompt renders the deterministic region prompt for one fetch.
func BuildPrompt(r region.Region, now time.Time, targetCount int) string {
	date := now.Format("Mon Jan 2 2006")
	return fmt.Sprintf(promptTemplate, date, strings.TrimSpace(r.Focus), targetCount, date)
}
