// Package assistants provides the tool-calling loop: for each query the
// Assistant lists the remote tools, asks the model to pick one, executes it,
// feeds the result back into the conversation, and repeats until the model
// produces the final answer.
package assistants
