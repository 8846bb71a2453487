package advisor

const systemPrompt = `You are a career advisor. Answer with a single JSON object and no other text.`

const roadmapPrompt = `Build a personalised career development plan for the candidate below.

# CANDIDATE CV (JSON)
{{.CV}}

# DESIRED CAREER PATHS
{{json .Paths}}

# CAREER INTENTIONS
{{.Intentions}}

# OUTPUT FORMAT
{
  "intentions": {"desiredPosition": "<string>", "careerGoals": "<string>"},
  "roadmap": {"currentPosition": "<string>", "potentialPaths": ["<string>"]},
  "profile": {"currentPosition": "<string>", "experience": "<string>", "keySkills": ["<string>"]},
  "steps": [
    {
      "id": <int starting at 1>,
      "title": "<string>",
      "description": "<string>",
      "duration": "<time estimate>",
      "recommendedResources": [
        {"type": "<Youtube|Coursera|Udemy|Book|Article|Documentation|Tutorial>", "title": "<string>", "url": "<url>", "explanation": "<string>"}
      ],
      "improvementAreas": ["<string>"]
    }
  ]
}

Return between 3 and 8 steps ordered from first to last.`

const feedbackPrompt = `You previously generated this career development plan:
{{.Original}}

The user rated step {{.StepID}} with this feedback:
{{.Feedback}}

Improve that step only. Make the description clearer when clarityScore is low,
align it with the user's goals when relevanceScore is low, adjust the resources
to the difficultyLevel and follow the userComment.

Return only the updated step as a JSON object with the fields
id, title, description, duration, recommendedResources, improvementAreas and
explainabilityNote.`
