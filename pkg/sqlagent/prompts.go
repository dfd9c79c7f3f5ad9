package sqlagent

const chooseTablesSystemPrompt = `You select which database tables are relevant to a question. Reply with ONLY a JSON object of the form {"tables": ["table_a", "table_b"]}. List only tables from the catalog given to you. If none are relevant, reply {"tables": []}.`

const generateSQLSystemPrompt = `You write a single read-only SQL statement that answers a question, given table DDL. Reply with ONLY a JSON object of the form {"sql": "SELECT ..."}. Never write INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, or TRUNCATE statements.`

const formatSummarySystemPrompt = `You summarize a SQL query result in plain English, one to three sentences, for someone who cannot see the raw table. You are given the actual columns and rows. You MUST NOT invent, estimate, or round any value that is not present in the rows given to you; if the rows are empty, say so instead of guessing. Reply with ONLY a JSON object of the form {"summary": "..."}.`

const suggestionsSystemPrompt = `You suggest up to five natural follow-up questions given a prior question and its answer summary. Reply with ONLY a JSON object of the form {"suggestions": ["...", "..."]}.`
