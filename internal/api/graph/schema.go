package graph

// 时间字段统一使用RFC3339字符串（UTC）
const schemaString = `
enum ElectionStatus {
  UPCOMING
  ONGOING
  COMPLETED
  CANCELLED
}

enum VoterRestriction {
  ALL
  STUDENTS
  FACULTY
  NON_TEACHING
  STUDENTS_FACULTY
}

enum CandidateStatus {
  PENDING
  APPROVED
  REJECTED
}

enum UserType {
  STUDENT
  FACULTY
  NON_TEACHING
}

type Election {
  id: ID!
  title: String!
  description: String!
  campaignStartDate: String!
  campaignEndDate: String!
  electionStartDate: String!
  electionEndDate: String!
  status: ElectionStatus!
  voterRestriction: VoterRestriction!
  isActive: Boolean!
  isOfficial: Boolean!
  createdAt: String!
  positions: [Position!]!
  candidates: [Candidate!]!
}

type Position {
  id: ID!
  electionId: ID!
  title: String!
  winnerCount: Int!
  sortOrder: Int!
}

type Candidate {
  id: ID!
  userId: ID!
  electionId: ID!
  positionId: ID!
  status: CandidateStatus!
  platform: String!
  photoUrl: String!
  isActive: Boolean!
  createdAt: String!
}

type Vote {
  id: ID!
  electionId: ID!
  positionId: ID!
  candidateId: ID!
  createdAt: String!
}

type User {
  id: ID!
  email: String!
  name: String!
  role: String!
  userType: UserType
  isActive: Boolean!
}

type CandidateTally {
  candidateId: ID!
  userId: ID!
  votes: Int!
  rank: Int!
  isWinner: Boolean!
}

type PositionResult {
  positionId: ID!
  title: String!
  winnerCount: Int!
  tieAtCutoff: Boolean!
  candidates: [CandidateTally!]!
}

type Turnout {
  totalVoters: Int!
  votedCount: Int!
  notVotedCount: Int!
  percentage: String!
}

type ElectionResults {
  electionId: ID!
  status: ElectionStatus!
  isOfficial: Boolean!
  positions: [PositionResult!]!
  turnout: Turnout!
}

input PositionInput {
  title: String!
  winnerCount: Int!
}

input CreateElectionInput {
  title: String!
  description: String
  campaignStartDate: String!
  campaignEndDate: String!
  electionStartDate: String!
  electionEndDate: String!
  voterRestriction: VoterRestriction
  positions: [PositionInput!]
}

input RegisterCandidacyInput {
  electionId: ID!
  positionId: ID!
  platform: String!
  photoUrl: String!
}

input CastVoteInput {
  electionId: ID!
  positionId: ID!
  candidateId: ID!
}

input UserInput {
  id: ID!
  email: String
  name: String
  role: String
  userType: UserType
  isActive: Boolean
  year: String
  course: String
  section: String
  institute: String
  department: String
  unit: String
}

type Query {
  # 选举列表
  elections(activeOnly: Boolean): [Election!]!

  # 单个选举
  election(id: ID!): Election!

  # 选举的候选人
  candidates(electionId: ID!): [Candidate!]!

  # 计票结果，进行中返回实时结果
  results(electionId: ID!): ElectionResults!

  # 当前用户在该选举中已投票的职位
  myVotedPositions(electionId: ID!): [ID!]!
}

type Mutation {
  # 管理员操作
  createElection(input: CreateElectionInput!): Election!
  addPosition(electionId: ID!, input: PositionInput!): Position!
  cancelElection(id: ID!): Election!
  archiveElection(id: ID!): Election!
  markOfficial(id: ID!): Election!
  reviewCandidacy(candidateId: ID!, decision: CandidateStatus!): Candidate!
  syncStatuses: Boolean!
  saveUser(input: UserInput!): User!

  # 当前用户操作
  registerCandidacy(input: RegisterCandidacyInput!): Candidate!
  castVote(input: CastVoteInput!): Vote!
}

schema {
  query: Query
  mutation: Mutation
}
`
