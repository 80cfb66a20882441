package agent

// Prompt templates for the generation collaborator. Structured stages
// instruct the model to answer in JSON; the parsers in each agent tolerate
// fences and surrounding prose anyway.

const expansionSystem = `You are a research assistant that generates diverse search queries.`

const expansionPromptFmt = `Given a research question, generate %d different search queries that will find sources from DIFFERENT perspectives:

1. Academic/Research: "site:arxiv.org OR site:nature.com {topic} research paper"
2. Recent News: "{topic} news announcement"
3. Industry/Commercial: "{topic} company startup commercial application"
4. Technical Deep-Dive: "{topic} how it works technical explanation"
5. Critical Analysis: "{topic} challenges limitations criticism"

Return ONLY a JSON array of query strings, no other text.
Example: ["query 1", "query 2", "query 3"]

Research question: %s`

const clarificationSystem = `You are a helpful research assistant that asks clarifying questions. Always respond with valid JSON.`

const clarificationPromptFmt = `Analyze this research query and determine if clarification is needed. Consider scope, time frame, perspective, ambiguous terms, and desired depth.

## User's Original Query
%s

## Response Format
Respond with JSON in this EXACT format:
{
    "needs_clarification": true,
    "analysis": "Brief analysis of what's unclear or could be refined",
    "questions": ["Question 1?", "Question 2?", "Question 3?"],
    "suggested_refined_query": "A more specific version if clarification isn't needed"
}

If the query is already clear and specific, set "needs_clarification": false.
Maximum 3 questions, each focused on one aspect.`

const refinementSystem = `You are a research query optimizer. Create clear, specific research queries.`

const refinementPromptFmt = `Based on the original query and the user's clarification responses, create a refined research query.

## Original Query
%s

## Clarification Q&A
%s

## Instructions
Create a refined, specific research query that incorporates the user's preferences, is focused and actionable, and includes any time frame, scope, or perspective constraints mentioned.

Respond with ONLY the refined query, nothing else.`

const synthesisSystem = `You are a world-class research analyst with expertise in synthesizing complex information and providing critical analysis. You distinguish between established facts, emerging claims, and speculation.`

const synthesisPromptFmt = `Synthesize the retrieved information into a comprehensive, critically analyzed research report.

## Research Query
%s

## Retrieved Information
%s

## Report Requirements

### 1. Executive Summary (3 paragraphs)
### 2. Key Findings (5-7 bullet points, each cited as [1], [2], ...)
### 3. Detailed Analysis
- Note conflicting viewpoints and distinguish hype from reality
- Identify consensus vs. debate and provide temporal context
### 4. Recent Developments (focus on the past 2 years, with dates)
### 5. Challenges and Limitations
### 6. Future Directions
### 7. Sources
Format each source as: [1] Publication. "Title" (Year). URL

## Critical Analysis Guidelines
1. Separate proven results from speculation
2. Include expert skepticism where sources disagree
3. Be specific about evidence
4. Avoid overgeneralizing
5. Note source quality (academic papers vs. announcements vs. news)

## Formatting
Use Markdown. Citations as [1], [2], etc. inline. Target length 2000-3000 words. Academic tone but accessible to educated non-specialists.

Generate the research report now:`

const revisionNoteFmt = `

## Revision Instructions
A previous draft of this report was reviewed. Address the following feedback in this version:
%s`

const reflectionSystem = `You are a meticulous research quality evaluator. You provide fair, constructive feedback with specific examples. Always respond with valid JSON.`

const reflectionPromptFmt = `Critically assess the research report below and provide actionable feedback.

## Research Query
%s

## Generated Report
%s

## Evaluation Criteria
Rate each dimension on a 1-10 scale: completeness, accuracy, recency, critical_analysis, practical_value, structure.

## Output Format
Respond with a JSON object in this EXACT format:
{
    "scores": {
        "completeness": 8,
        "accuracy": 7,
        "recency": 6,
        "critical_analysis": 7,
        "practical_value": 8,
        "structure": 9
    },
    "overall_score": 7.5,
    "verdict": "REVISE",
    "strengths": ["..."],
    "weaknesses": ["..."],
    "revision_instructions": "..."
}

IMPORTANT:
- "verdict" must be either "ACCEPT" or "REVISE"
- Use "ACCEPT" if overall_score >= 7.5, "REVISE" otherwise
- Be specific in strengths, weaknesses, and revision instructions

Evaluate the report now:`
