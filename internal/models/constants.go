package models

const (
	QuizQuestionRegex = `^Q(\d+):\s*(.*)$`
	QuizOptionRegex   = `^([A-D])\)\s*(.*)$`
	CorrectMarker     = "*"
	NotInContext      = "answer is not available in the context"
)

var (
	// AnswerPromptTemplate is rendered with the "context" and "question" inputs.
	AnswerPromptTemplate = `Answer the question as detailed as possible from the provided context, make sure to provide all the details. If the answer is not in the provided context just say, "` + NotInContext + `", don't provide the wrong answer.

Context:
{{.context}}

Question:
{{.question}}

Answer:
`

	// QuizPromptTemplate takes the question count, the difficulty level and the document extract.
	QuizPromptTemplate = `Generate %d multiple-choice questions (MCQs) based on the content of the document.

Difficulty level: %s

For each question:
1. Create a clear question related to important concepts in the document
2. Provide 4 possible answers (A, B, C, D)
3. Only ONE answer should be correct
4. Mark the correct answer with a * at the beginning

Format each question exactly like this example, and separate questions with a blank line:

Q1: What is the capital of France?
A) Berlin
B) Madrid
C) *Paris
D) Rome

Make sure each question is distinct, relevant, and tests understanding rather than just memory.

Document content (extract):
%s
`
)
