package ai

const PROMPT_VAR_INTENTS = "${intents}"

// 路由：判断问题需要细节原文还是全局摘要
const PROMPT_ROUTER_CN = `你是一个查询分类助手，需要判断用户问题应该使用哪种检索方式。

可选的类型：
${intents}

请根据问题的意图选择最合适的类型，并给出置信度(0-1)和简短理由。`

const PROMPT_ROUTER_INTENT_DETAIL = `DETAIL：细节问题，需要查找文档中的具体内容、定义、数据、步骤或原文表述。
  示例："什么是进程调度？"、"第三章提到的公式是什么？"、"TCP 三次握手的具体过程"`

const PROMPT_ROUTER_INTENT_GLOBAL = `GLOBAL：全局问题，需要对文档整体进行概括、总结或梳理主要内容。
  示例："这门课主要讲了什么？"、"帮我总结一下这份资料"、"这篇文档的核心观点有哪些？"`

const PROMPT_CHUNK_SUMMARY_CN = `请为以下文档片段生成一个简洁的摘要。

要求：
1. 提取该片段的核心内容和关键信息
2. 保留重要的专有名词、术语、人名、数据
3. 摘要长度控制在 100-200 字
4. 使用清晰、简洁的语言

只输出摘要内容，不要添加任何解释或标题。`

const PROMPT_CHUNK_SUMMARY_EN = `Write a concise summary of the following document fragment.

Requirements:
1. Capture the core content and key information of the fragment
2. Keep important proper nouns, terms, names and figures
3. Keep the summary between 100 and 200 characters
4. Use clear and concise language

Output only the summary, without explanations or headings.`

const PROMPT_CHUNK_SUMMARY_USER_CN = "这是文档的第 %d/%d 部分：\n\n%s"

const PROMPT_CHUNK_SUMMARY_USER_EN = "This is part %d/%d of the document:\n\n%s"

const PROMPT_ANSWER_WITH_SOURCES_CN = `你是一个专业的学习助手。

回答要求：
1. 基于提供的资料回答问题
2. 在引用内容后添加角标 [1]、[2] 等
3. 回答要清晰、准确、有条理
4. 使用中文回答
5. 直接回答问题，不要以"根据资料"等开头`

const PROMPT_ANSWER_WITH_SOURCES_EN = `You are a professional study assistant.

Requirements:
1. Answer the question based on the provided materials
2. Add markers such as [1], [2] after cited content
3. Be clear, accurate and well organized
4. Answer in English
5. Answer directly, do not start with "According to the materials"`

const PROMPT_ANSWER_NO_SOURCES_CN = `你是一个专业的学习助手。
使用中文回答用户的问题。`

const PROMPT_ANSWER_NO_SOURCES_EN = `You are a professional study assistant.
Answer the user's question in English.`

// 用户提示词各段标题
const (
	PROMPT_SECTION_SOURCES_CN   = "【知识库资料】"
	PROMPT_SECTION_HISTORY_CN   = "【对话历史】"
	PROMPT_SECTION_QUESTION_CN  = "【用户问题】"
	PROMPT_SOURCE_ITEM_CN       = "[资料%d] 来源：%s\n%s"
	PROMPT_SOURCE_SEPARATOR     = "\n\n---\n\n"
	PROMPT_ANSWER_TAIL_CN       = "请根据以上知识库资料回答用户的问题。"
	PROMPT_HISTORY_USER_CN      = "用户"
	PROMPT_HISTORY_ASSISTANT_CN = "助手"

	PROMPT_SECTION_SOURCES_EN   = "[Knowledge base]"
	PROMPT_SECTION_HISTORY_EN   = "[Conversation history]"
	PROMPT_SECTION_QUESTION_EN  = "[Question]"
	PROMPT_SOURCE_ITEM_EN       = "[Source %d] from: %s\n%s"
	PROMPT_ANSWER_TAIL_EN       = "Please answer the question based on the knowledge base above."
	PROMPT_HISTORY_USER_EN      = "User"
	PROMPT_HISTORY_ASSISTANT_EN = "Assistant"
)
